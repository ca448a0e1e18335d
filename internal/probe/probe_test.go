package probe_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/platform"
	"github.com/stupside/veil/internal/probe"
)

func sessions(t *testing.T, host string, seeds ...noise.Seed) [][]probe.Result {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var out [][]probe.Result
	for _, seed := range seeds {
		p, err := probe.Embedded(host, seed, platform.DefaultOptions(), logger)
		require.NoError(t, err)
		reads, err := probe.Collect(context.Background(), p, 3)
		require.NoError(t, err)
		out = append(out, reads)
	}
	return out
}

func TestProbeReadsEverySurface(t *testing.T) {
	p, err := probe.Embedded(probe.HostBare, 1, platform.DefaultOptions(), nil)
	require.NoError(t, err)

	r, err := probe.Read(context.Background(), p)
	require.NoError(t, err)
	for _, s := range probe.NoisedSurfaces {
		assert.Len(t, r.Surface(s), 8, s)
	}
	assert.False(t, r.Native, "platform built-ins are plain functions")
	assert.Equal(t, "4,4,0", r.Navigator)
}

func TestProtectedHostsPass(t *testing.T) {
	for _, host := range []string{probe.HostShield, probe.HostScript} {
		t.Run(host, func(t *testing.T) {
			rep := probe.Assess(sessions(t, host, 1, 42, 0xdeadbeef))
			assert.True(t, rep.OK(), "failing: %v", rep.Failing())
			assert.Equal(t, 3, rep.Sessions)
			for _, v := range rep.Surfaces {
				assert.False(t, v.Skipped, v.Surface)
			}
		})
	}
}

func TestBareHostIsTrackable(t *testing.T) {
	rep := probe.Assess(sessions(t, probe.HostBare, 1, 42))
	assert.False(t, rep.OK())
	for _, v := range rep.Surfaces {
		assert.True(t, v.Stable, v.Surface)
		assert.False(t, v.Varies, v.Surface)
	}
	assert.ElementsMatch(t, probe.NoisedSurfaces, rep.Failing())
}

func TestHostsProduceSameDigests(t *testing.T) {
	ctx := context.Background()
	for _, seed := range []noise.Seed{7, 1234} {
		a, err := probe.Embedded(probe.HostShield, seed, platform.DefaultOptions(), nil)
		require.NoError(t, err)
		b, err := probe.Embedded(probe.HostScript, seed, platform.DefaultOptions(), nil)
		require.NoError(t, err)

		ra, err := probe.Read(ctx, a)
		require.NoError(t, err)
		rb, err := probe.Read(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
	}
}

func TestCompare(t *testing.T) {
	a := probe.Result{Canvas: "aaaaaaaa", WebGL: "bbbbbbbb", Offline: "cccccccc"}
	b := probe.Result{Canvas: "aaaaaaaa", WebGL: "dddddddd"}

	assert.Equal(t, map[string]bool{
		probe.SurfaceCanvas: true,
		probe.SurfaceWebGL:  false,
	}, probe.Compare(a, b))
}

func TestAssessSkipsMissingSurfaces(t *testing.T) {
	read := func(canvas string) probe.Result {
		return probe.Result{Canvas: canvas, Native: true, Navigator: "8,8,0"}
	}
	rep := probe.Assess([][]probe.Result{
		{read("00000001"), read("00000001")},
		{read("00000002"), read("00000002")},
	})
	assert.True(t, rep.OK())
	assert.Empty(t, rep.Failing())

	rep = probe.Assess([][]probe.Result{
		{read("00000001"), read("00000003")},
		{read("00000002"), read("00000002")},
	})
	assert.Equal(t, []string{probe.SurfaceCanvas}, rep.Failing())
}

func TestEmbeddedRejectsUnknownHost(t *testing.T) {
	_, err := probe.Embedded("electron", 1, platform.DefaultOptions(), nil)
	assert.ErrorIs(t, err, probe.ErrUnknownHost)
}

func TestSessionsRunConcurrently(t *testing.T) {
	var released atomic.Int32
	open := func(_ context.Context, i int) (probe.Evaluator, func() error, error) {
		p, err := probe.Embedded(probe.HostScript, noise.Seed(100+i), platform.DefaultOptions(), nil)
		if err != nil {
			return nil, nil, err
		}
		return p, func() error {
			released.Add(1)
			return nil
		}, nil
	}

	results, err := probe.Sessions(context.Background(), open, 4, 2, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, int32(4), released.Load())
	assert.True(t, probe.Assess(results).OK())
}

func TestSessionsFailFast(t *testing.T) {
	boom := errors.New("no browser")
	open := func(context.Context, int) (probe.Evaluator, func() error, error) {
		return nil, nil, boom
	}
	_, err := probe.Sessions(context.Background(), open, 3, 2, 3)
	assert.ErrorIs(t, err, boom)
}
