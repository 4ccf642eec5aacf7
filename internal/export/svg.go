package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/drivesim/internal/config"
	"github.com/san-kum/drivesim/internal/runner"
	"github.com/san-kum/drivesim/internal/sim"
)

const (
	wallFill     = "#444466"
	obstacleFill = "#aa5500"
	trailStroke  = "#00ff88"
)

// TrailSVG draws the arena and the path a run took. Arena millimetres map
// to pixels by scale; y grows downwards as in the arena.
func TrailSVG(w io.Writer, cfg config.SimulationConfig, arena config.Arena, samples []runner.Sample, scale float64) error {
	if scale <= 0 {
		scale = 0.25
	}
	width := cfg.ArenaWidth * scale
	height := cfg.ArenaHeight * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	rect := func(r sim.Rect, fill string) {
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, r.X*scale, r.Y*scale, r.Width*scale, r.Height*scale, fill))
	}
	for _, r := range arena.Walls {
		rect(r, wallFill)
	}
	for _, r := range arena.Obstacles {
		rect(r, obstacleFill)
	}

	start := arena.Start
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="#00ccff"/>
`, start.X*scale, start.Y*scale))

	if len(samples) > 0 {
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M%.1f,%.1f`,
			trailStroke, start.X*scale, start.Y*scale))
		for _, s := range samples {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", s.X*scale, s.Y*scale))
		}
		sb.WriteString("\"/>\n")

		end := samples[len(samples)-1]
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="#ff4444"/>
`, end.X*scale, end.Y*scale))
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
