package shield

import (
	"github.com/dop251/goja"

	"github.com/stupside/veil/internal/intercept"
)

func installCanvas(s *Session, p *page) (int, error) {
	read, err := p.patchAll([][2]string{
		{"CanvasRenderingContext2D", "getImageData"},
		{"OffscreenCanvasRenderingContext2D", "getImageData"},
	}, intercept.Policy{After: s.noiseImageData})
	if err != nil {
		return read, err
	}

	export, err := p.patchAll([][2]string{
		{"HTMLCanvasElement", "toDataURL"},
		{"HTMLCanvasElement", "toBlob"},
	}, intercept.Policy{Around: s.exportVia(newScratchCanvas)})
	if err != nil {
		return read + export, err
	}

	offscreen, err := p.patchAll([][2]string{
		{"OffscreenCanvas", "convertToBlob"},
	}, intercept.Policy{Around: s.exportVia(newScratchOffscreen)})
	return read + export + offscreen, err
}

// noiseImageData perturbs the ImageData returned by getImageData, keyed by
// the source coordinates of the requested rectangle.
func (s *Session) noiseImageData(c intercept.Call, res goja.Value) (goja.Value, error) {
	if !present(res) {
		return nil, intercept.ErrSkip
	}
	img := res.ToObject(c.VM)
	pix, ok := img.Get("data").Export().([]byte)
	if !ok {
		return nil, intercept.ErrSkip
	}
	w, h := int(img.Get("width").ToInteger()), int(img.Get("height").ToInteger())
	if w <= 0 || h <= 0 {
		return nil, intercept.ErrSkip
	}

	x0, y0 := c.Arg(0).ToInteger(), c.Arg(1).ToInteger()
	if sw := c.Arg(2).ToInteger(); sw < 0 {
		x0 += sw
	}
	if sh := c.Arg(3).ToInteger(); sh < 0 {
		y0 += sh
	}
	s.noise.ApplyRGBA(pix, int(x0), int(y0), w, h)
	return res, nil
}

// scratchFactory creates an empty surface of the given size.
type scratchFactory func(vm *goja.Runtime, w, h int64) (*goja.Object, error)

func newScratchCanvas(vm *goja.Runtime, w, h int64) (*goja.Object, error) {
	doc := vm.Get("document")
	if !present(doc) {
		return nil, intercept.ErrSkip
	}
	v, err := call(doc.ToObject(vm), "createElement", vm.ToValue("canvas"))
	if err != nil {
		return nil, err
	}
	canvas := v.ToObject(vm)
	if err := canvas.Set("width", w); err != nil {
		return nil, err
	}
	if err := canvas.Set("height", h); err != nil {
		return nil, err
	}
	return canvas, nil
}

func newScratchOffscreen(vm *goja.Runtime, w, h int64) (*goja.Object, error) {
	ctor := vm.Get("OffscreenCanvas")
	if !present(ctor) {
		return nil, intercept.ErrSkip
	}
	return vm.New(ctor, vm.ToValue(w), vm.ToValue(h))
}

// exportVia forces canvas noise into export paths. The source is drawn
// onto a scratch surface, read back through the patched getImageData,
// written with the unpatched putImageData and only then exported with the
// original export function. Degenerate sizes and any failure along the way
// make the wrapper export the source directly.
func (s *Session) exportVia(scratch scratchFactory) intercept.Around {
	return func(c intercept.Call, orig goja.Callable) (goja.Value, error) {
		if !present(c.This) {
			return nil, intercept.ErrSkip
		}
		src := c.This.ToObject(c.VM)
		w, h := src.Get("width").ToInteger(), src.Get("height").ToInteger()
		if w <= 0 || h <= 0 {
			return nil, intercept.ErrSkip
		}

		dst, err := scratch(c.VM, w, h)
		if err != nil {
			return nil, err
		}
		cv, err := call(dst, "getContext", c.VM.ToValue("2d"))
		if err != nil {
			return nil, err
		}
		if !present(cv) {
			return nil, intercept.ErrSkip
		}
		ctx := cv.ToObject(c.VM)
		zero := c.VM.ToValue(0)
		if _, err := call(ctx, "drawImage", src, zero, zero); err != nil {
			return nil, err
		}
		img, err := call(ctx, "getImageData", zero, zero, c.VM.ToValue(w), c.VM.ToValue(h))
		if err != nil {
			return nil, err
		}
		if _, err := call(ctx, "putImageData", img, zero, zero); err != nil {
			return nil, err
		}
		return orig(dst, c.Args...)
	}
}

// ReferenceRGBA returns a copy of pix with the noise a pixel read of the
// rectangle at (x0, y0) receives in this session.
func (s *Session) ReferenceRGBA(pix []byte, x0, y0, w, h int) []byte {
	out := append([]byte(nil), pix...)
	s.noise.ApplyRGBA(out, x0, y0, w, h)
	return out
}
