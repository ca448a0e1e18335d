// Package probe measures what a fingerprinting script observes. The probe
// runs the same expression in any host that can evaluate JavaScript: an
// embedded page or a real browser tab.
package probe

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
)

//go:embed js/probe.js
var probeJS string

// Surfaces that carry session noise.
const (
	SurfaceCanvas        = "canvas"
	SurfaceCanvasExport  = "canvas_export"
	SurfaceWebGL         = "webgl"
	SurfaceAnalyserFloat = "analyser_float"
	SurfaceAnalyserByte  = "analyser_byte"
	SurfaceOffline       = "offline"
)

// NoisedSurfaces lists every noised surface in report order.
var NoisedSurfaces = []string{
	SurfaceCanvas,
	SurfaceCanvasExport,
	SurfaceWebGL,
	SurfaceAnalyserFloat,
	SurfaceAnalyserByte,
	SurfaceOffline,
}

// Evaluator runs a JavaScript expression and decodes its settled value.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, out any) error
}

// Result holds the digests of one probe run. An empty digest means the
// surface was unavailable in the host.
type Result struct {
	Canvas        string `json:"canvas"`
	CanvasExport  string `json:"canvas_export"`
	WebGL         string `json:"webgl"`
	AnalyserFloat string `json:"analyser_float"`
	AnalyserByte  string `json:"analyser_byte"`
	Offline       string `json:"offline"`
	Native        bool   `json:"native"`
	Navigator     string `json:"navigator"`
}

// Surface returns the digest recorded for name.
func (r Result) Surface(name string) string {
	switch name {
	case SurfaceCanvas:
		return r.Canvas
	case SurfaceCanvasExport:
		return r.CanvasExport
	case SurfaceWebGL:
		return r.WebGL
	case SurfaceAnalyserFloat:
		return r.AnalyserFloat
	case SurfaceAnalyserByte:
		return r.AnalyserByte
	case SurfaceOffline:
		return r.Offline
	}
	return ""
}

// Script returns the probe expression. It evaluates to a promise of a
// Result.
func Script() string {
	return probeJS
}

// Read runs the probe once.
func Read(ctx context.Context, e Evaluator) (Result, error) {
	var r Result
	if err := e.Evaluate(ctx, probeJS, &r); err != nil {
		return Result{}, fmt.Errorf("running probe: %w", err)
	}
	return r, nil
}

// Collect runs the probe reads times in the same page.
func Collect(ctx context.Context, e Evaluator, reads int) ([]Result, error) {
	out := make([]Result, 0, reads)
	for range reads {
		r, err := Read(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Compare reports, per noised surface available in both results, whether
// a and b agree.
func Compare(a, b Result) map[string]bool {
	same := make(map[string]bool, len(NoisedSurfaces))
	for _, s := range NoisedSurfaces {
		da, db := a.Surface(s), b.Surface(s)
		if da == "" || db == "" {
			continue
		}
		same[s] = da == db
	}
	return same
}

// Verdict is the outcome for one surface across all sessions.
type Verdict struct {
	Surface string `json:"surface"`
	// Stable is true when every read within each session agreed.
	Stable bool `json:"stable"`
	// Varies is true when the first reads of every pair of sessions differ.
	Varies bool `json:"varies"`
	// Skipped is true when the surface was unavailable in some read.
	Skipped bool `json:"skipped,omitempty"`
}

// Report summarises a set of probed sessions.
type Report struct {
	Sessions  int       `json:"sessions"`
	Surfaces  []Verdict `json:"surfaces"`
	Native    bool      `json:"native"`
	Navigator bool      `json:"navigator"`
}

// Assess builds a Report from per-session probe results. Each inner slice
// holds the reads of one session.
func Assess(sessions [][]Result) Report {
	rep := Report{Sessions: len(sessions), Native: true, Navigator: true}

	var navigator string
	for i, reads := range sessions {
		for _, r := range reads {
			rep.Native = rep.Native && r.Native
			if i == 0 && navigator == "" {
				navigator = r.Navigator
			}
			rep.Navigator = rep.Navigator && r.Navigator == navigator
		}
	}

	for _, s := range NoisedSurfaces {
		rep.Surfaces = append(rep.Surfaces, assessSurface(s, sessions))
	}
	return rep
}

func assessSurface(surface string, sessions [][]Result) Verdict {
	v := Verdict{Surface: surface, Stable: true, Varies: true}

	firsts := make([]string, 0, len(sessions))
	for _, reads := range sessions {
		if len(reads) == 0 {
			v.Skipped = true
			continue
		}
		first := reads[0].Surface(surface)
		for _, r := range reads {
			d := r.Surface(surface)
			if d == "" {
				v.Skipped = true
			}
			v.Stable = v.Stable && d == first
		}
		firsts = append(firsts, first)
	}

	for i := range firsts {
		for j := i + 1; j < len(firsts); j++ {
			v.Varies = v.Varies && firsts[i] != firsts[j]
		}
	}
	if v.Skipped {
		v.Stable, v.Varies = false, false
	}
	return v
}

// OK reports whether every available surface is stable within a session
// and varies across sessions, wrappers look native and navigator constants
// hold.
func (r Report) OK() bool {
	for _, v := range r.Surfaces {
		if v.Skipped {
			continue
		}
		if !v.Stable || !v.Varies {
			return false
		}
	}
	return r.Native && r.Navigator
}

// Failing returns the names of available surfaces that did not pass.
func (r Report) Failing() []string {
	var out []string
	for _, v := range r.Surfaces {
		if !v.Skipped && (!v.Stable || !v.Varies) {
			out = append(out, v.Surface)
		}
	}
	return out
}

// Log writes one line per surface and a summary line.
func (r Report) Log(ctx context.Context, logger *slog.Logger) {
	for _, v := range r.Surfaces {
		logger.InfoContext(ctx, "surface",
			"name", v.Surface,
			"stable", v.Stable,
			"varies", v.Varies,
			"skipped", v.Skipped,
		)
	}
	logger.InfoContext(ctx, "probe report",
		"sessions", r.Sessions,
		"native", r.Native,
		"navigator", r.Navigator,
		"ok", r.OK(),
		"failing", strings.Join(r.Failing(), ","),
	)
}
