// Package platform installs a small software rendering and audio stack
// into a goja runtime so that fingerprinting scripts can run without a
// browser. Its surfaces behave like the browser built-ins the shield
// patches: 2-D canvas, WebGL pixel reads, analyser nodes, offline audio
// rendering and RTCPeerConnection.
package platform

import (
	_ "embed"
	"fmt"

	"github.com/dop251/goja"
)

//go:embed js/platform.js
var platformJS string

// Options describes the simulated device. Two pages built from different
// options produce different raw fingerprints, like two real machines.
type Options struct {
	// Bias shifts rendered colour channels, emulating GPU/driver variance.
	Bias int
	// Tone shapes the synthetic analyser spectrum.
	Tone float64
	// Frequency is the oscillator frequency used by offline rendering.
	Frequency    float64
	UserAgent    string
	Cores        int
	TouchPoints  int
	DeviceMemory int
}

// DefaultOptions returns a plain desktop device.
func DefaultOptions() Options {
	return Options{
		Bias:         0,
		Tone:         0.05,
		Frequency:    1000,
		UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
		Cores:        4,
		TouchPoints:  0,
		DeviceMemory: 4,
	}
}

// Page is a goja runtime with the platform loaded.
type Page struct {
	vm    *goja.Runtime
	taint goja.Callable
}

// New creates a runtime and loads the platform into it.
func New(opts Options) (*Page, error) {
	return Load(goja.New(), opts)
}

// Load installs the platform into an existing runtime.
func Load(vm *goja.Runtime, opts Options) (*Page, error) {
	prog, err := goja.Compile("platform.js", platformJS, true)
	if err != nil {
		return nil, fmt.Errorf("compiling platform: %w", err)
	}
	v, err := vm.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("evaluating platform: %w", err)
	}
	setup, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("platform script did not evaluate to a function")
	}

	p := &Page{vm: vm}
	settings := map[string]any{
		"bias":         opts.Bias,
		"tone":         opts.Tone,
		"frequency":    opts.Frequency,
		"userAgent":    opts.UserAgent,
		"cores":        opts.Cores,
		"touchPoints":  opts.TouchPoints,
		"deviceMemory": opts.DeviceMemory,
	}
	res, err := setup(goja.Undefined(), vm.GlobalObject(), vm.ToValue(settings), vm.ToValue(p.encode))
	if err != nil {
		return nil, fmt.Errorf("installing platform: %w", err)
	}
	if p.taint, ok = goja.AssertFunction(res); !ok {
		return nil, fmt.Errorf("platform did not return its taint hook")
	}
	return p, nil
}

// VM returns the underlying runtime.
func (p *Page) VM() *goja.Runtime {
	return p.vm
}

// Run evaluates src in the page.
func (p *Page) Run(src string) (goja.Value, error) {
	return p.vm.RunString(src)
}

// Taint marks canvas as holding cross-origin content: pixel reads and
// exports of it, and of any canvas it is drawn onto, throw SecurityError.
func (p *Page) Taint(canvas goja.Value) error {
	_, err := p.taint(goja.Undefined(), canvas)
	return err
}

func (p *Page) encode(call goja.FunctionCall) goja.Value {
	pix, ok := call.Argument(0).Export().([]byte)
	if !ok {
		panic(p.vm.NewTypeError("pixel buffer is not a byte array"))
	}
	w, h := int(call.Argument(1).ToInteger()), int(call.Argument(2).ToInteger())
	quality := -1.0
	if q := call.Argument(4); !goja.IsUndefined(q) && !goja.IsNull(q) {
		quality = q.ToFloat()
	}
	url, err := EncodeDataURL(pix, w, h, call.Argument(3).String(), quality)
	if err != nil {
		panic(p.vm.NewGoError(err))
	}
	return p.vm.ToValue(url)
}
