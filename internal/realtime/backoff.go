package realtime

import (
	"math"
	"time"
)

// Policy decides how long to wait before reconnect attempt n, where n counts
// consecutive failures starting at zero.
type Policy interface {
	Delay(attempt int) time.Duration
}

// Fixed retries after the same interval every time.
type Fixed struct {
	Interval time.Duration
}

func (f Fixed) Delay(int) time.Duration {
	return f.Interval
}

// Exponential grows the delay by Factor per consecutive failure, starting at
// Base and never exceeding Max.
type Exponential struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

// DefaultPolicy is 1s growing by 1.5x up to 30s.
func DefaultPolicy() Exponential {
	return Exponential{Base: time.Second, Factor: 1.5, Max: 30 * time.Second}
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	factor := e.Factor
	if factor < 1 {
		factor = 1
	}

	d := float64(e.Base) * math.Pow(factor, float64(attempt))
	if math.IsInf(d, 0) || math.IsNaN(d) || d > float64(e.Max) {
		return e.Max
	}
	return time.Duration(d)
}
