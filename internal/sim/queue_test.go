package sim

import (
	"reflect"
	"sync"
	"testing"
)

func TestQueueDrainAll(t *testing.T) {
	q := NewQueue()
	a, b, c := DriveForward(100, 100), RotateLeft(150), Brake()
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)

	got := q.DrainAll()
	want := []Command{a, b, c}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DrainAll() = %v, want %v", got, want)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
	if again := q.DrainAll(); again != nil {
		t.Errorf("second drain should be empty, got %v", again)
	}
}

func TestQueueDiscard(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Init())
	q.Enqueue(Brake())
	if n := q.Discard(); n != 2 {
		t.Errorf("expected 2 discarded, got %d", n)
	}
	if q.Len() != 0 {
		t.Error("queue should be empty after discard")
	}
}

func TestQueueConcurrentProducerConsumer(t *testing.T) {
	q := NewQueue()
	const total = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Enqueue(HoldState(float64(i)))
		}
	}()

	seen := make([]Command, 0, total)
	for len(seen) < total {
		seen = append(seen, q.DrainAll()...)
	}
	wg.Wait()

	for i, c := range seen {
		if c.Seconds != float64(i) {
			t.Fatalf("command %d out of order: %v", i, c)
		}
	}
}
