package mux

import (
	"math/rand"
	"time"
)

// Backoff produces exponentially growing reconnect delays with a bit of
// jitter so a fleet of clients doesn't stampede the backend after an
// outage.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	Jitter  float64 // fraction of the delay, e.g. 0.2
	attempt int
}

func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Base: base, Max: max, Jitter: 0.2}
}

func (b *Backoff) Next() time.Duration {
	d := b.Max
	if b.attempt < 31 {
		if shifted := b.Base << b.attempt; shifted > 0 && shifted < b.Max {
			d = shifted
		}
	}
	b.attempt++
	if b.Jitter > 0 {
		d += time.Duration(rand.Float64() * b.Jitter * float64(d))
	}
	return d
}

func (b *Backoff) Reset() {
	b.attempt = 0
}
