// Package sdp filters ICE candidate lines out of session descriptions so
// that local and server-reflexive addresses never reach the peer.
package sdp

import (
	"slices"
	"strings"
)

const candidatePrefix = "a=candidate:"

// blocked lists the candidate types that reveal a network path of the host.
var blocked = []string{"host", "srflx"}

// CandidateType returns the "typ" value of an a=candidate line.
func CandidateType(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, candidatePrefix) {
		return "", false
	}
	fields := strings.Fields(line[len(candidatePrefix):])
	i := slices.Index(fields, "typ")
	if i < 0 || i+1 >= len(fields) {
		return "", false
	}
	return fields[i+1], true
}

// Blocked reports whether line is a candidate line that must be dropped.
func Blocked(line string) bool {
	typ, ok := CandidateType(line)
	return ok && slices.Contains(blocked, typ)
}

// FilterCandidates removes host and srflx candidate lines from an SDP
// blob. The line terminator of the input (CRLF or LF) is preserved and a
// removed line leaves no empty line behind.
func FilterCandidates(text string) string {
	if !strings.Contains(text, candidatePrefix) {
		return text
	}
	sep := "\n"
	if strings.Contains(text, "\r\n") {
		sep = "\r\n"
	}
	lines := strings.Split(text, sep)
	kept := lines[:0]
	for _, line := range lines {
		if Blocked(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, sep)
}
