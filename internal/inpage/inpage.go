// Package inpage renders the noise engine as a script that runs inside a
// real browser page before any page script.
//
// The snippets under js/ share one function scope: the prelude provides the
// toString registry and the wrapper installer, the noise core mirrors
// package noise bit for bit, and each surface snippet installs its wrappers
// and logs one console.debug line. Evaluating the script twice in the same
// realm is a no-op.
package inpage

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/stupside/veil/internal/noise"
	"github.com/stupside/veil/internal/shield"
)

// Marker is the non-enumerable global the script defines once installed.
// It is shared with the Go host so either install sees the other.
const Marker = shield.Marker

//go:embed js/prelude.js
var preludeJS string

//go:embed js/noise.js
var noiseJS string

//go:embed js/canvas.js
var canvasJS string

//go:embed js/webgl.js
var webglJS string

//go:embed js/audio.js
var audioJS string

//go:embed js/offline.js
var offlineJS string

//go:embed js/webrtc.js
var webrtcJS string

//go:embed js/navigator.js
var navigatorJS string

const (
	scriptOpen  = "(function () {\n'use strict';\n"
	scriptClose = "\n})();\n"
)

// Render returns the in-page script bound to seed.
func Render(seed noise.Seed) string {
	snippets := []string{
		preludeJS,
		noiseJS,
		canvasJS,
		webglJS,
		audioJS,
		offlineJS,
		webrtcJS,
		navigatorJS,
	}
	joined := scriptOpen + strings.Join(snippets, "\n") + scriptClose

	r := strings.NewReplacer(
		"__VEIL_MARKER__", Marker,
		"__NOISE_SEED__", fmt.Sprintf("%d", uint32(seed)),
		"__BYTE_AMPLITUDE__", fmt.Sprintf("%d", noise.ByteAmplitude),
		"__TICK_AMPLITUDE__", fmt.Sprintf("%d", noise.TickAmplitude),
		"__FLOAT_EPSILON__", strconv.FormatFloat(noise.FloatEpsilon, 'g', -1, 64),
		"__SAMPLE_RATE__", fmt.Sprintf("%d", noise.SampleRate),
		"__SAMPLE_SCALE__", fmt.Sprintf("%d", noise.SampleScale),
		"__SALT_CANVAS__", salt(noise.SaltCanvas),
		"__SALT_WEBGL__", salt(noise.SaltWebGL),
		"__SALT_AUDIO__", salt(noise.SaltAudio),
		"__SALT_OFFLINE__", salt(noise.SaltOffline),
		"__SALT_SAMPLE__", salt(noise.SaltSample),
		"__DEVICE_MEMORY__", fmt.Sprintf("%d", shield.DeviceMemory),
		"__HARDWARE_CONCURRENCY__", fmt.Sprintf("%d", shield.HardwareConcurrency),
		"__MAX_TOUCH_POINTS__", fmt.Sprintf("%d", shield.MaxTouchPoints),
		"__CONNECTION_TYPE__", shield.ConnectionType,
		"__CONNECTION_RTT__", fmt.Sprintf("%d", shield.ConnectionRTT),
		"__CONNECTION_DOWNLINK__", strconv.FormatFloat(shield.ConnectionDown, 'g', -1, 64),
		"__BATTERY_LEVEL__", strconv.FormatFloat(shield.BatteryLevel, 'g', -1, 64),
	)
	return r.Replace(joined)
}

func salt(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
