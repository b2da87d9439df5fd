package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Backoff decides how long to wait before the given retry attempt.
// The second return value reports that the retry budget is exhausted.
type Backoff interface {
	Delay(attempt uint) (time.Duration, bool)
}

type noRetry struct{}

func NewNoRetry() Backoff {
	return noRetry{}
}

func (noRetry) Delay(uint) (time.Duration, bool) {
	return 0, true
}

// Jitter maps an upper bound to a delay in [0, bound].
type Jitter func(int64) int64

type exponentialBackoff struct {
	base       time.Duration
	ceiling    time.Duration
	maxRetries uint
	jitter     Jitter
}

// NewExponentialBackoff doubles base on every attempt, caps it at ceiling and
// stops after maxRetries. A nil jitter picks a uniform random delay.
func NewExponentialBackoff(base time.Duration, ceiling time.Duration, maxRetries uint, jitter Jitter) Backoff {
	if jitter == nil {
		jitter = func(n int64) int64 {
			if n <= 0 {
				return 0
			}
			return rand.Int63n(n)
		}
	}
	return &exponentialBackoff{
		base:       base,
		ceiling:    ceiling,
		maxRetries: maxRetries,
		jitter:     jitter,
	}
}

func (b *exponentialBackoff) Delay(attempt uint) (time.Duration, bool) {
	if attempt >= b.maxRetries {
		return 0, true
	}

	ceiling := int64(b.ceiling)
	if attempt >= 63 {
		return time.Duration(b.jitter(ceiling)), false
	}

	delay, err := mulInt64(int64(1)<<attempt, int64(b.base))
	if err != nil {
		return time.Duration(b.jitter(ceiling)), false
	}
	return time.Duration(b.jitter(lower(delay, ceiling))), false
}

func lower[T constraints.Ordered](l T, r T) T {
	if l > r {
		return r
	}
	return l
}

var ErrOverflow = errors.New("overflow")

func mulInt64(l int64, r int64) (int64, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	if l > math.MaxInt64/r {
		return 0, ErrOverflow
	}
	return l * r, nil
}
