package noise_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/veil/internal/noise"
)

func filled(w, h int, r, g, b, a byte) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
	return pix
}

func TestApplyRGBABlackCanvas(t *testing.T) {
	for _, seed := range []noise.Seed{1, 42, 1234, 99991} {
		pix := filled(10, 10, 0, 0, 0, 255)
		noise.New(seed).ApplyRGBA(pix, 0, 0, 10, 10)

		untouched, changed := 0, 0
		for i := 0; i < len(pix); i += 4 {
			require.Equal(t, byte(255), pix[i+3], "alpha must be preserved")
			if pix[i] == 0 && pix[i+1] == 0 && pix[i+2] == 0 {
				untouched++
				continue
			}
			changed++
			for c := 0; c < 3; c++ {
				assert.LessOrEqual(t, pix[i+c], byte(noise.ByteAmplitude))
			}
		}
		assert.GreaterOrEqual(t, untouched, 85, "seed %d", seed)
		assert.Positive(t, changed, "seed %d", seed)
	}
}

func TestApplyRGBAClampsAtWhite(t *testing.T) {
	pix := filled(32, 32, 255, 255, 255, 128)
	noise.New(99).ApplyRGBA(pix, 0, 0, 32, 32)
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			assert.GreaterOrEqual(t, pix[i+c], byte(255-noise.ByteAmplitude))
		}
		assert.Equal(t, byte(128), pix[i+3])
	}
}

func TestApplyRGBAIsPositional(t *testing.T) {
	g := noise.New(1234)

	full := filled(20, 20, 128, 64, 32, 255)
	g.ApplyRGBA(full, 0, 0, 20, 20)

	sub := filled(10, 10, 128, 64, 32, 255)
	g.ApplyRGBA(sub, 5, 5, 10, 10)

	for row := 0; row < 10; row++ {
		got := sub[row*10*4 : (row+1)*10*4]
		want := full[((row+5)*20+5)*4 : ((row+5)*20+15)*4]
		require.True(t, bytes.Equal(want, got), "row %d", row)
	}
}

func TestApplyRGBADiffersAcrossSeeds(t *testing.T) {
	a := filled(64, 64, 100, 100, 100, 255)
	b := filled(64, 64, 100, 100, 100, 255)
	noise.New(1).ApplyRGBA(a, 0, 0, 64, 64)
	noise.New(2).ApplyRGBA(b, 0, 0, 64, 64)
	assert.False(t, bytes.Equal(a, b))
}

func TestApplyComponentsRGB(t *testing.T) {
	pix := bytes.Repeat([]byte{10, 20, 30}, 50*50)
	touched := noise.New(5).ApplyComponents(pix, 3, noise.SaltWebGL, 0, 0, 50, 50)
	assert.Positive(t, touched)
	assert.Less(t, touched, 50*50/4)
	for i := 0; i < len(pix); i += 3 {
		assert.InDelta(t, 10, int(pix[i]), noise.ByteAmplitude)
		assert.InDelta(t, 20, int(pix[i+1]), noise.ByteAmplitude)
		assert.InDelta(t, 30, int(pix[i+2]), noise.ByteAmplitude)
	}
}

func TestApplyComponentsShortBuffer(t *testing.T) {
	pix := make([]byte, 10)
	assert.NotPanics(t, func() {
		noise.New(5).ApplyComponents(pix, 4, noise.SaltWebGL, 0, 0, 100, 100)
	})
	assert.Zero(t, noise.New(5).ApplyComponents(pix, 2, noise.SaltWebGL, 0, 0, 1, 1))
}

func TestRowStride(t *testing.T) {
	assert.Equal(t, 16, noise.RowStride(5, 3, 4))
	assert.Equal(t, 15, noise.RowStride(5, 3, 1))
	assert.Equal(t, 16, noise.RowStride(5, 3, 8))
	assert.Equal(t, 24, noise.RowStride(6, 4, 8))
	assert.Equal(t, 20, noise.RowStride(5, 4, 4))
}

func TestApplyRowsLeavesPadding(t *testing.T) {
	const w, h, stride = 5, 40, 16
	pix := bytes.Repeat([]byte{100}, stride*h)
	g := noise.New(9)
	touched := g.ApplyRows(pix, 3, stride, noise.SaltWebGL, 0, 0, w, h)
	assert.Positive(t, touched)

	packed := bytes.Repeat([]byte{100}, w*3*h)
	assert.Equal(t, touched, g.ApplyComponents(packed, 3, noise.SaltWebGL, 0, 0, w, h))
	for row := 0; row < h; row++ {
		assert.Equal(t, packed[row*w*3:(row+1)*w*3], pix[row*stride:row*stride+w*3], "row %d", row)
		assert.Equal(t, byte(100), pix[row*stride+stride-1], "padding after row %d", row)
	}
}

func TestApplyFloat32ZeroBuffer(t *testing.T) {
	samples := make([]float32, 1024)
	noise.New(77).ApplyFloat32(samples, noise.SaltAudio)

	require.Len(t, samples, 1024)
	nonZero := 0
	for _, v := range samples {
		assert.LessOrEqual(t, math.Abs(float64(v)), noise.FloatEpsilon)
		if v != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 1000)
}

func TestApplyBytesClamps(t *testing.T) {
	low := make([]byte, 256)
	high := bytes.Repeat([]byte{255}, 256)
	g := noise.New(3)
	g.ApplyBytes(low, noise.SaltAudio)
	g.ApplyBytes(high, noise.SaltAudio)
	for i := range low {
		assert.LessOrEqual(t, low[i], byte(1))
		assert.GreaterOrEqual(t, high[i], byte(254))
	}
}
