package sim

import "sync"

// Queue is the FIFO command bridge of one session.
type Queue struct {
	mu   sync.Mutex
	cmds []Command
}

func NewQueue() *Queue {
	return &Queue{cmds: make([]Command, 0, 16)}
}

func (q *Queue) Enqueue(c Command) {
	q.mu.Lock()
	q.cmds = append(q.cmds, c)
	q.mu.Unlock()
}

// DrainAll returns every queued command in order and leaves the queue empty.
func (q *Queue) DrainAll() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.cmds) == 0 {
		return nil
	}
	out := q.cmds
	q.cmds = make([]Command, 0, cap(out))
	return out
}

// Discard drops everything queued and reports how many commands were lost.
func (q *Queue) Discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.cmds)
	q.cmds = q.cmds[:0]
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}
