package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/drivesim/internal/sim"
)

const (
	DefaultWheelDiameter   = 65.0
	DefaultWheelBase       = 120.0
	DefaultMaxMotor        = 255.0
	DefaultMMPerUnit       = 1.0
	DefaultArenaSize       = 2000.0
	DefaultVehicleWidth    = 120.0
	DefaultVehicleLength   = 150.0
	DefaultSensorMinRange  = 20.0
	DefaultSensorMaxRange  = 4000.0
	DefaultSensorNoise     = 2.0
	DefaultStepDelay       = 500 * time.Millisecond
	DefaultMaxTraceSteps   = 10000
	DefaultMaxTraceTime    = 5 * time.Second
	DefaultSpeedMultiplier = 1.0
	DefaultTickInterval    = 16 * time.Millisecond
	DefaultTrailLength     = 500
)

var ErrInvalidConfig = errors.New("config: invalid simulation config")

// SimulationConfig holds every tunable of a session. Lengths are in mm.
type SimulationConfig struct {
	WheelDiameter   float64       `yaml:"wheel_diameter"`
	WheelBase       float64       `yaml:"wheel_base"`
	MaxMotor        float64       `yaml:"max_motor"`
	MMPerUnit       float64       `yaml:"mm_per_unit"`
	ArenaWidth      float64       `yaml:"arena_width"`
	ArenaHeight     float64       `yaml:"arena_height"`
	VehicleWidth    float64       `yaml:"vehicle_width"`
	VehicleLength   float64       `yaml:"vehicle_length"`
	SensorMinRange  float64       `yaml:"sensor_min_range"`
	SensorMaxRange  float64       `yaml:"sensor_max_range"`
	SensorOffset    float64       `yaml:"sensor_offset"`
	SensorNoise     float64       `yaml:"sensor_noise"`
	StepDelay       time.Duration `yaml:"step_delay"`
	MaxTraceSteps   int           `yaml:"max_trace_steps"`
	MaxTraceTime    time.Duration `yaml:"max_trace_time"`
	SpeedMultiplier float64       `yaml:"speed_multiplier"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	TrailLength     int           `yaml:"trail_length"`
}

// Arena is the static world of a session.
type Arena struct {
	Name      string     `yaml:"name"`
	Start     sim.Pose   `yaml:"start"`
	Walls     []sim.Rect `yaml:"walls"`
	Obstacles []sim.Rect `yaml:"obstacles"`
}

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Arena      Arena            `yaml:"arena"`
	Seed       int64            `yaml:"seed"`
}

func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		WheelDiameter:   DefaultWheelDiameter,
		WheelBase:       DefaultWheelBase,
		MaxMotor:        DefaultMaxMotor,
		MMPerUnit:       DefaultMMPerUnit,
		ArenaWidth:      DefaultArenaSize,
		ArenaHeight:     DefaultArenaSize,
		VehicleWidth:    DefaultVehicleWidth,
		VehicleLength:   DefaultVehicleLength,
		SensorMinRange:  DefaultSensorMinRange,
		SensorMaxRange:  DefaultSensorMaxRange,
		SensorOffset:    DefaultVehicleLength / 2,
		SensorNoise:     DefaultSensorNoise,
		StepDelay:       DefaultStepDelay,
		MaxTraceSteps:   DefaultMaxTraceSteps,
		MaxTraceTime:    DefaultMaxTraceTime,
		SpeedMultiplier: DefaultSpeedMultiplier,
		TickInterval:    DefaultTickInterval,
		TrailLength:     DefaultTrailLength,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Simulation: DefaultSimulation(),
		Arena:      *GetPreset("empty"),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	s := c.Simulation
	if c.Arena.Start.X < 0 || c.Arena.Start.X > s.ArenaWidth || c.Arena.Start.Y < 0 || c.Arena.Start.Y > s.ArenaHeight {
		return fmt.Errorf("%w: start (%g, %g) outside %gx%g arena", ErrInvalidConfig, c.Arena.Start.X, c.Arena.Start.Y, s.ArenaWidth, s.ArenaHeight)
	}
	for i, r := range append(append([]sim.Rect{}, c.Arena.Walls...), c.Arena.Obstacles...) {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("%w: rectangle %d has non-positive size", ErrInvalidConfig, i)
		}
	}
	return nil
}

func (s SimulationConfig) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"wheel_diameter", s.WheelDiameter},
		{"wheel_base", s.WheelBase},
		{"max_motor", s.MaxMotor},
		{"mm_per_unit", s.MMPerUnit},
		{"arena_width", s.ArenaWidth},
		{"arena_height", s.ArenaHeight},
		{"vehicle_width", s.VehicleWidth},
		{"vehicle_length", s.VehicleLength},
		{"sensor_max_range", s.SensorMaxRange},
		{"speed_multiplier", s.SpeedMultiplier},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidConfig, p.name, p.v)
		}
	}
	if s.SensorMinRange < 0 || s.SensorMinRange >= s.SensorMaxRange {
		return fmt.Errorf("%w: sensor range [%g, %g] is empty", ErrInvalidConfig, s.SensorMinRange, s.SensorMaxRange)
	}
	if s.SensorNoise < 0 {
		return fmt.Errorf("%w: sensor_noise must not be negative", ErrInvalidConfig)
	}
	if s.VehicleWidth >= s.ArenaWidth || s.VehicleLength >= s.ArenaHeight {
		return fmt.Errorf("%w: vehicle does not fit in the arena", ErrInvalidConfig)
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", ErrInvalidConfig)
	}
	if s.StepDelay < 0 {
		return fmt.Errorf("%w: step_delay must not be negative", ErrInvalidConfig)
	}
	if s.MaxTraceSteps <= 0 || s.MaxTraceTime <= 0 {
		return fmt.Errorf("%w: trace limits must be positive", ErrInvalidConfig)
	}
	if s.TrailLength < 0 {
		return fmt.Errorf("%w: trail_length must not be negative", ErrInvalidConfig)
	}
	return nil
}

// TickSeconds is the simulated time covered by one physics tick.
func (s SimulationConfig) TickSeconds() float64 {
	return s.TickInterval.Seconds() * s.SpeedMultiplier
}
