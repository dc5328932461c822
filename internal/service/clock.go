package service

import "time"

// Clock is injected so late-fee boundaries are testable deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }
