package sdp_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stupside/veil/internal/sdp"
)

const offer = "v=0\r\n" +
	"o=- 4611731400430051336 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"a=candidate:1 1 udp 2122260223 192.168.1.20 54321 typ host generation 0\r\n" +
	"a=candidate:2 1 udp 41885439 203.0.113.5 3478 typ relay raddr 0.0.0.0 rport 0 generation 0\r\n" +
	"a=end-of-candidates\r\n"

func TestFilterCandidatesDropsHostKeepsRelay(t *testing.T) {
	got := sdp.FilterCandidates(offer)

	assert.NotContains(t, got, "typ host")
	assert.Contains(t, got, "typ relay")
	assert.Contains(t, got, "a=end-of-candidates\r\n")
	assert.NotContains(t, got, "\r\n\r\n")
	assert.Equal(t, strings.Count(offer, "\r\n")-1, strings.Count(got, "\r\n"))
}

func TestFilterCandidatesLF(t *testing.T) {
	in := "m=audio 9 RTP 0\n" +
		"a=candidate:3 1 udp 1686052607 198.51.100.7 61000 typ srflx raddr 10.0.0.2 rport 61000\n" +
		"a=candidate:4 1 tcp 1518280447 10.0.0.2 9 typ host tcptype active\n" +
		"a=candidate:5 1 udp 1 203.0.113.9 3478 typ prflx\n"
	want := "m=audio 9 RTP 0\n" +
		"a=candidate:5 1 udp 1 203.0.113.9 3478 typ prflx\n"
	assert.Equal(t, want, sdp.FilterCandidates(in))
}

func TestFilterCandidatesWithoutCandidates(t *testing.T) {
	in := "v=0\r\ns=-\r\n"
	assert.Equal(t, in, sdp.FilterCandidates(in))
	assert.Equal(t, "", sdp.FilterCandidates(""))
}

func TestCandidateType(t *testing.T) {
	typ, ok := sdp.CandidateType("a=candidate:1 1 udp 1 10.0.0.1 1 typ host")
	assert.True(t, ok)
	assert.Equal(t, "host", typ)

	_, ok = sdp.CandidateType("a=candidate:1 1 udp 1 10.0.0.1 1 typ")
	assert.False(t, ok)

	_, ok = sdp.CandidateType("a=rtcp-mux")
	assert.False(t, ok)

	assert.False(t, sdp.Blocked("a=candidate:2 1 udp 1 203.0.113.5 3478 typ relay"))
	assert.True(t, sdp.Blocked("  a=candidate:2 1 udp 1 203.0.113.5 3478 typ srflx"))
}
