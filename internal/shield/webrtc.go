package shield

import (
	"github.com/dop251/goja"

	"github.com/stupside/veil/internal/intercept"
	"github.com/stupside/veil/internal/sdp"
)

func installWebRTC(_ *Session, p *page) (int, error) {
	return p.patchAll([][2]string{
		{"RTCPeerConnection", "setLocalDescription"},
		{"RTCPeerConnection", "setRemoteDescription"},
	}, intercept.Policy{Before: filterDescription})
}

// filterDescription hands the native setter a copy of the description
// whose SDP no longer lists host or server-reflexive candidates.
func filterDescription(c intercept.Call) ([]goja.Value, error) {
	if !present(c.Arg(0)) {
		return nil, intercept.ErrSkip
	}
	desc := c.Arg(0).ToObject(c.VM)
	raw := desc.Get("sdp")
	if !present(raw) {
		return nil, intercept.ErrSkip
	}
	text := raw.String()
	filtered := sdp.FilterCandidates(text)
	if filtered == text {
		return nil, intercept.ErrSkip
	}

	clean := c.VM.NewObject()
	if err := clean.Set("type", desc.Get("type")); err != nil {
		return nil, err
	}
	if err := clean.Set("sdp", filtered); err != nil {
		return nil, err
	}
	args := append([]goja.Value{clean}, c.Args[1:]...)
	return args, nil
}
