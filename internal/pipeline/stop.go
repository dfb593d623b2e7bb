package pipeline

import "sync"

// StopSignal is a one-way latch shared by every stage. Once stopped it stays
// stopped.
type StopSignal struct {
	once sync.Once
	done chan struct{}
}

func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Stop sets the latch. Safe to call any number of times from any goroutine.
func (s *StopSignal) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *StopSignal) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}
