package clock

import (
	"sync"
	"time"
)

// Clock abstracts time to keep usecases deterministic in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Stepping returns Start, Start+Step, Start+2*Step, ... on successive calls.
type Stepping struct {
	Start time.Time
	Step  time.Duration

	mu sync.Mutex
	n  int64
}

func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Start.Add(time.Duration(s.n) * s.Step).UTC()
	s.n++
	return now
}
