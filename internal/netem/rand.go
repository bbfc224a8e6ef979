package netem

import (
	"math/rand/v2"
	"time"
)

// Rand is the single seeded source behind every emulator draw. It satisfies
// rand.Source so distribution samplers can draw from it too.
type Rand struct {
	seed uint64
	r    *rand.Rand
}

var _ rand.Source = (*Rand)(nil)

// NewRand seeds a generator. Seed 0 picks a time based seed.
func NewRand(seed int64) *Rand {
	s := uint64(seed)
	if seed == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return &Rand{
		seed: s,
		r:    rand.New(rand.NewPCG(splitmix64(s), splitmix64(s^0xda3e39cb94b95bdb))),
	}
}

// Seed is the effective seed, useful to replay a time seeded run.
func (r *Rand) Seed() uint64 { return r.seed }

func (r *Rand) Uint64() uint64 { return r.r.Uint64() }

// Float64 draws from [0,1).
func (r *Rand) Float64() float64 { return r.r.Float64() }

func (r *Rand) Int64N(n int64) int64 { return r.r.Int64N(n) }

// splitmix64: guter deterministischer 64-bit mixer
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
