package shield

import (
	"github.com/dop251/goja"

	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/noise"
)

// WebGL enums the read policy understands.
const (
	glUnsignedByte  = 0x1401
	glRGB           = 0x1907
	glRGBA          = 0x1908
	glPackAlignment = 0x0D05
)

func installWebGL(s *Session, p *page) (int, error) {
	return p.patchAll([][2]string{
		{"WebGLRenderingContext", "readPixels"},
		{"WebGL2RenderingContext", "readPixels"},
	}, intercept.Policy{After: s.noiseReadPixels})
}

// noiseReadPixels perturbs a sparse subset of the pixels readPixels wrote.
// Only unsigned-byte RGB/RGBA reads into a byte view are covered; every
// other storage format is left as the driver produced it.
func (s *Session) noiseReadPixels(c intercept.Call, res goja.Value) (goja.Value, error) {
	if len(c.Args) < 7 || c.Arg(5).ToInteger() != glUnsignedByte {
		return nil, intercept.ErrSkip
	}
	var components int
	switch c.Arg(4).ToInteger() {
	case glRGBA:
		components = 4
	case glRGB:
		components = 3
	default:
		return nil, intercept.ErrSkip
	}
	if !present(c.Arg(6)) {
		return nil, intercept.ErrSkip
	}
	pix, ok := c.Arg(6).Export().([]byte)
	if !ok {
		return nil, intercept.ErrSkip
	}
	if off := c.Arg(7).ToInteger(); off > 0 {
		if off >= int64(len(pix)) {
			return nil, intercept.ErrSkip
		}
		pix = pix[off:]
	}

	x, y := int(c.Arg(0).ToInteger()), int(c.Arg(1).ToInteger())
	w, h := int(c.Arg(2).ToInteger()), int(c.Arg(3).ToInteger())
	stride := noise.RowStride(w, components, packAlignment(c))
	s.noise.ApplyRows(pix, components, stride, noise.SaltWebGL, x, y, w, h)
	return res, nil
}

// packAlignment returns the context's PACK_ALIGNMENT, or the WebGL default
// of 4 when it cannot be read.
func packAlignment(c intercept.Call) int {
	if !present(c.This) {
		return 4
	}
	v, err := call(c.This.ToObject(c.VM), "getParameter", c.VM.ToValue(glPackAlignment))
	if err != nil || !present(v) {
		return 4
	}
	switch a := int(v.ToInteger()); a {
	case 1, 2, 4, 8:
		return a
	}
	return 4
}
