// Package clock supplies the current time and the OTP code source.
package clock

import (
	"math/rand"
	"time"
)

const (
	CodeMin = 1000
	CodeMax = 9999
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// CodeSource returns a 4-digit numeric code.
type CodeSource func() int

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the wall clock.
var System Clock = systemClock{}

// Fixed is a Clock frozen at a settable instant.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }

// RandomCode returns a code in [CodeMin, CodeMax]. The source is re-seeded on
// every call; codes are a UX throttle, not a secret.
func RandomCode() int {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return CodeMin + rng.Intn(CodeMax-CodeMin+1)
}
