package shield

import (
	"github.com/dop251/goja"

	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/noise"
)

func installAudio(s *Session, p *page) (int, error) {
	return p.patchAll([][2]string{
		{"AnalyserNode", "getFloatFrequencyData"},
		{"AnalyserNode", "getFloatTimeDomainData"},
		{"AnalyserNode", "getByteFrequencyData"},
		{"AnalyserNode", "getByteTimeDomainData"},
	}, intercept.Policy{After: s.noiseAnalyser})
}

// noiseAnalyser adds noise to every sample the analyser wrote into the
// caller's array. Analyser arrays are small, so sampling is dense.
func (s *Session) noiseAnalyser(c intercept.Call, res goja.Value) (goja.Value, error) {
	if !present(c.Arg(0)) {
		return nil, intercept.ErrSkip
	}
	switch buf := c.Arg(0).Export().(type) {
	case []float32:
		s.noise.ApplyFloat32(buf, noise.SaltAudio)
	case []byte:
		s.noise.ApplyBytes(buf, noise.SaltAudio)
	default:
		return nil, intercept.ErrSkip
	}
	return res, nil
}

func installOffline(s *Session, p *page) (int, error) {
	return p.patchAll([][2]string{
		{"OfflineAudioContext", "startRendering"},
	}, intercept.Policy{
		Before: s.hookComplete(p, originalListen(p.vm)),
		After:  s.chainRendered(p),
	})
}

// originalListen returns EventTarget.prototype.addEventListener as it was
// before any page script ran, or nil when the page has no EventTarget.
func originalListen(vm *goja.Runtime) goja.Callable {
	proto, err := intercept.Prototype(vm, "EventTarget")
	if err != nil {
		return nil
	}
	fn, _ := goja.AssertFunction(proto.Get("addEventListener"))
	return fn
}

// chainRendered inserts a noise stage between the native render completion
// and whatever the caller chains on the returned promise.
func (s *Session) chainRendered(p *page) intercept.After {
	return func(c intercept.Call, res goja.Value) (goja.Value, error) {
		if !present(res) {
			return nil, intercept.ErrSkip
		}
		promise := res.ToObject(c.VM)
		stage := c.VM.ToValue(func(fc goja.FunctionCall) goja.Value {
			buf := fc.Argument(0)
			s.noiseRendered(p, buf)
			return buf
		})
		chained, err := call(promise, "then", stage)
		if err != nil {
			return nil, err
		}
		return chained, nil
	}
}

// hookComplete registers a capturing complete listener before rendering
// starts. The complete event is delivered before promise continuations,
// and capturing listeners run ahead of oncomplete and bubbling listeners
// whenever they were added.
func (s *Session) hookComplete(p *page, listen goja.Callable) intercept.Before {
	return func(c intercept.Call) ([]goja.Value, error) {
		if listen == nil || !present(c.This) {
			return nil, intercept.ErrSkip
		}
		listener := c.VM.ToValue(func(fc goja.FunctionCall) goja.Value {
			if ev := fc.Argument(0); present(ev) {
				s.noiseRendered(p, ev.ToObject(c.VM).Get("renderedBuffer"))
			}
			return goja.Undefined()
		})
		if _, err := listen(c.This, c.VM.ToValue("complete"), listener, c.VM.ToValue(true)); err != nil {
			return nil, err
		}
		return nil, intercept.ErrSkip
	}
}

// noiseRendered perturbs every channel of a rendered AudioBuffer exactly
// once, however many completion paths deliver it.
func (s *Session) noiseRendered(p *page, v goja.Value) {
	if !present(v) {
		return
	}
	buf := v.ToObject(p.vm)
	if _, done := p.rendered[buf]; done {
		return
	}
	p.rendered[buf] = struct{}{}

	channels := int(buf.Get("numberOfChannels").ToInteger())
	for ch := 0; ch < channels; ch++ {
		data, err := call(buf, "getChannelData", p.vm.ToValue(ch))
		if err != nil {
			s.logger.Debug("reading rendered channel failed", "channel", ch, "error", err)
			continue
		}
		samples, ok := data.Export().([]float32)
		if !ok {
			continue
		}
		s.noise.ApplyFloat32At(samples, noise.SaltOffline, ch*len(samples))
	}
}
