package noise

// ApplyRGBA perturbs an RGBA pixel buffer in place. The buffer covers a
// w×h rectangle whose top-left pixel sits at (x0, y0) of the source
// surface, so the same source pixel receives the same delta regardless of
// the rectangle it was read through. Alpha is never touched.
//
// It returns the number of pixels that were selected for noise.
func (g Generator) ApplyRGBA(pix []byte, x0, y0, w, h int) int {
	return g.ApplyComponents(pix, 4, SaltCanvas, x0, y0, w, h)
}

// ApplyComponents perturbs a packed 8-bit pixel buffer with the given
// number of components per pixel (3 for RGB, 4 for RGBA). For four
// components the last one is treated as alpha and left alone. Pixels that
// would fall past the end of pix are ignored.
func (g Generator) ApplyComponents(pix []byte, components int, salt uint32, x0, y0, w, h int) int {
	return g.ApplyRows(pix, components, w*components, salt, x0, y0, w, h)
}

// ApplyRows is ApplyComponents for a buffer whose rows start stride bytes
// apart. Padding between rows is never touched.
func (g Generator) ApplyRows(pix []byte, components, stride int, salt uint32, x0, y0, w, h int) int {
	if components < 3 || w <= 0 || h <= 0 {
		return 0
	}
	stride = max(stride, w*components)
	colour := 3
	touched := 0
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			off := row*stride + col*components
			if off+colour > len(pix) {
				return touched
			}
			x, y := x0+col, y0+row
			if !g.Sampled(salt, PixelKey(x, y, 0)) {
				continue
			}
			touched++
			for c := 0; c < colour; c++ {
				pix[off+c] = clampByte(int(pix[off+c]) + g.Byte(salt, PixelKey(x, y, c)))
			}
		}
	}
	return touched
}

// RowStride returns the distance in bytes between rows of w pixels when
// each row starts on a multiple of alignment, as WebGL's PACK_ALIGNMENT
// lays out pixel reads.
func RowStride(w, components, alignment int) int {
	row := w * components
	if alignment <= 1 {
		return row
	}
	return (row + alignment - 1) / alignment * alignment
}

// ApplyFloat32 adds floating noise to every sample.
func (g Generator) ApplyFloat32(samples []float32, salt uint32) {
	for i, v := range samples {
		samples[i] = float32(float64(v) + g.Float(salt, OffsetKey(i)))
	}
}

// ApplyFloat32At is ApplyFloat32 with keys offset by base, used when one
// logical signal is split across several buffers (channels).
func (g Generator) ApplyFloat32At(samples []float32, salt uint32, base int) {
	for i, v := range samples {
		samples[i] = float32(float64(v) + g.Float(salt, OffsetKey(base+i)))
	}
}

// ApplyBytes adds tick noise to every byte sample, clamped to 0..255.
func (g Generator) ApplyBytes(samples []byte, salt uint32) {
	for i, v := range samples {
		samples[i] = clampByte(int(v) + g.Tick(salt, OffsetKey(i)))
	}
}

func clampByte(v int) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}
