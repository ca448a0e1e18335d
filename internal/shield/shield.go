// Package shield installs the session noise engine into a goja page.
//
// A Session owns the seed and, per page runtime, the table of intercepted
// methods. Installing twice on the same runtime is a no-op, whichever
// session or host installed first. Each sub-module
// that patches at least one method logs a single line.
package shield

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/noise"
)

// Module names, in installation order.
const (
	ModuleCanvas    = "canvas"
	ModuleWebGL     = "webgl"
	ModuleAudio     = "audio"
	ModuleOffline   = "offline-audio"
	ModuleWebRTC    = "webrtc"
	ModuleNavigator = "navigator"
)

// Marker is the non-enumerable global defined on a protected page.
const Marker = "__veil"

// Session is the process-scoped state of one protected browsing session.
type Session struct {
	noise  noise.Generator
	logger *slog.Logger
	pages  map[*goja.Runtime]*page
}

// page is the per-runtime part of a session.
type page struct {
	vm        *goja.Runtime
	table     *intercept.Table
	rendered  map[*goja.Object]struct{}
	installed map[string]int
}

type module struct {
	name    string
	install func(*Session, *page) (int, error)
}

var modules = []module{
	{ModuleCanvas, installCanvas},
	{ModuleWebGL, installWebGL},
	{ModuleAudio, installAudio},
	{ModuleOffline, installOffline},
	{ModuleWebRTC, installWebRTC},
	{ModuleNavigator, installNavigator},
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for install diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession returns a session bound to seed.
func NewSession(seed noise.Seed, opts ...Option) *Session {
	s := &Session{
		noise:  noise.New(seed),
		logger: slog.Default(),
		pages:  make(map[*goja.Runtime]*page),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed returns the session seed.
func (s *Session) Seed() noise.Seed {
	return s.noise.Seed()
}

// Noise returns the session generator.
func (s *Session) Noise() noise.Generator {
	return s.noise
}

// Install patches every supported surface present in vm. Surfaces the page
// does not expose are skipped. The returned map holds the number of methods
// patched per module; it is empty when vm was already protected.
func (s *Session) Install(vm *goja.Runtime) (map[string]int, error) {
	if _, ok := s.pages[vm]; ok {
		return map[string]int{}, nil
	}
	global := vm.GlobalObject()
	if present(global.Get(Marker)) {
		s.logger.Debug("page already protected", "seed", uint32(s.noise.Seed()))
		return map[string]int{}, nil
	}
	if err := global.DefineDataProperty(Marker, vm.ToValue(true), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		return nil, fmt.Errorf("marking page: %w", err)
	}
	p := &page{
		vm:        vm,
		table:     intercept.NewTable(vm, s.logger),
		rendered:  make(map[*goja.Object]struct{}),
		installed: make(map[string]int),
	}

	var errs []error
	for _, m := range modules {
		n, err := m.install(s, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
		}
		if n == 0 {
			continue
		}
		p.installed[m.name] = n
		s.logger.Info("shield installed", "module", m.name, "methods", n, "seed", uint32(s.noise.Seed()))
	}
	s.pages[vm] = p
	return p.installed, errors.Join(errs...)
}

// Table returns the interception table used for vm, if any.
func (s *Session) Table(vm *goja.Runtime) (*intercept.Table, bool) {
	p, ok := s.pages[vm]
	if !ok {
		return nil, false
	}
	return p.table, true
}

// patch installs policy on ctor.prototype[method]. Missing constructors or
// methods and already patched methods are not errors.
func (p *page) patch(ctor, method string, policy intercept.Policy) (bool, error) {
	proto, err := intercept.Prototype(p.vm, ctor)
	if errors.Is(err, intercept.ErrMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = p.table.Install(proto, method, policy)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, intercept.ErrMissing), errors.Is(err, intercept.ErrPatched):
		return false, nil
	default:
		return false, fmt.Errorf("%s.%s: %w", ctor, method, err)
	}
}

// patchAll is patch over several (ctor, method) pairs sharing one policy.
func (p *page) patchAll(targets [][2]string, policy intercept.Policy) (int, error) {
	n := 0
	var errs []error
	for _, t := range targets {
		ok, err := p.patch(t[0], t[1], policy)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// call invokes obj[method](args...).
func call(obj *goja.Object, method string, args ...goja.Value) (goja.Value, error) {
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, intercept.ErrMissing)
	}
	return fn(obj, args...)
}

// present reports whether v holds a usable value.
func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}
