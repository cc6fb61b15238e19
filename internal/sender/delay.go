package sender

import (
	"math/rand"
	"time"
)

// Pacer spaces sends out so a batch looks like a person working through a
// list rather than a burst. Delays follow a normal distribution with a
// floor, plus a longer pause every few emails.
type Pacer struct {
	Mean       time.Duration
	Std        time.Duration
	Min        time.Duration
	BatchEvery int
	BatchMin   time.Duration
	BatchMax   time.Duration

	rand *rand.Rand
}

// NewPacer seeds the defaults used when a field is left zero.
func NewPacer(mean, std time.Duration) *Pacer {
	return &Pacer{
		Mean:       mean,
		Std:        std,
		Min:        30 * time.Second,
		BatchEvery: 5,
		BatchMin:   3 * time.Minute,
		BatchMax:   6 * time.Minute,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the pause before the given send (1-based position in the
// batch). Every BatchEvery-th email gets the long pause instead.
func (p *Pacer) Next(position int) time.Duration {
	if p.BatchEvery > 0 && position > 0 && position%p.BatchEvery == 0 {
		spread := p.BatchMax - p.BatchMin
		if spread <= 0 {
			return p.BatchMin
		}
		return p.BatchMin + time.Duration(p.rand.Int63n(int64(spread)))
	}

	d := time.Duration(p.rand.NormFloat64()*float64(p.Std) + float64(p.Mean))
	// Jitter keeps even the clamped floor from repeating exactly.
	jitter := 1 + (p.rand.Float64()*0.4 - 0.2)
	d = time.Duration(float64(d) * jitter)
	if d < p.Min {
		d = p.Min
	}
	return d
}

// WithinWorkHours reports whether t falls inside the sending window
// [startHour, endHour) on a weekday.
func WithinWorkHours(t time.Time, startHour, endHour int) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := t.Hour()
	return h >= startHour && h < endHour
}
