// Package noise derives small, session-stable perturbations for pixel and
// audio sample buffers from a single per-session seed.
//
// Every value is a pure function of (seed, salt, positional key). The mixing
// step uses 32-bit integer arithmetic only, so the in-page script produces
// the exact same deltas as this package.
package noise

import "math/rand/v2"

// Amplitude and density policy. These are build-time constants.
const (
	// ByteAmplitude bounds the delta applied to 8-bit colour channels.
	ByteAmplitude = 2
	// TickAmplitude bounds the delta applied to byte audio data.
	TickAmplitude = 1
	// FloatEpsilon bounds the delta applied to floating audio samples.
	FloatEpsilon = 1e-4
	// SampleRate is the per-mille share of pixels that receive noise.
	SampleRate = 100
	// SampleScale is the denominator of SampleRate.
	SampleScale = 1000
)

// Salts separate the noise streams of different surfaces so that, for
// example, a canvas pixel and an audio sample at the same key do not share
// a delta.
const (
	SaltCanvas  uint32 = 0x43414e56 // "CANV"
	SaltWebGL   uint32 = 0x5745424c // "WEBL"
	SaltAudio   uint32 = 0x41554449 // "AUDI"
	SaltOffline uint32 = 0x4f464c4e // "OFLN"
	SaltSample  uint32 = 0x53414d50 // "SAMP"
)

const golden uint32 = 0x9e3779b9

// Seed is the single source of randomness for one session.
type Seed uint32

// NewSeed picks a uniformly random non-zero seed.
func NewSeed() Seed {
	for {
		if s := rand.Uint32(); s != 0 {
			return Seed(s)
		}
	}
}

// Generator is a noise source bound to one seed. The zero value is not
// useful; build one with New.
type Generator struct {
	seed uint32
}

// New returns a Generator for seed.
func New(seed Seed) Generator {
	return Generator{seed: uint32(seed)}
}

// Seed returns the seed the generator was built with.
func (g Generator) Seed() Seed {
	return Seed(g.seed)
}

// PixelKey linearises a pixel coordinate and channel into a key.
func PixelKey(x, y, channel int) uint32 {
	return uint32(x)*73856093 ^ uint32(y)*19349663 ^ uint32(channel)*83492791
}

// OffsetKey turns a buffer offset into a key.
func OffsetKey(i int) uint32 {
	return uint32(i)
}

// mix is a murmur3 style finaliser over the seed, salt and key.
func (g Generator) mix(salt, key uint32) uint32 {
	h := g.seed ^ salt ^ key*golden
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// Byte returns a delta in [-ByteAmplitude, +ByteAmplitude].
func (g Generator) Byte(salt, key uint32) int {
	return int(g.mix(salt, key)%(2*ByteAmplitude+1)) - ByteAmplitude
}

// Tick returns a delta in [-TickAmplitude, +TickAmplitude].
func (g Generator) Tick(salt, key uint32) int {
	return int(g.mix(salt, key)%(2*TickAmplitude+1)) - TickAmplitude
}

// Float returns a delta in [-FloatEpsilon, +FloatEpsilon).
func (g Generator) Float(salt, key uint32) float64 {
	return (float64(g.mix(salt, key))/4294967296*2 - 1) * FloatEpsilon
}

// Sampled reports whether the position at key belongs to the sparse subset
// that receives noise. The test uses its own stream, independent of the
// delta stream for the same key.
func (g Generator) Sampled(salt, key uint32) bool {
	return g.mix(salt^SaltSample, key)%SampleScale < SampleRate
}
