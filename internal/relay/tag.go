package relay

import "strconv"

const (
	// MaxPayload bounds a single read; one read is one message.
	MaxPayload = 1024
	// MaxTagged bounds the tagged message. Longer output is truncated.
	MaxTagged = 1200
)

// Tag prefixes payload with the sender's slot: "[Client <index>] <payload>".
func Tag(index int, payload []byte) []byte {
	out := make([]byte, 0, min(MaxTagged, len(payload)+24))
	out = append(out, "[Client "...)
	out = strconv.AppendInt(out, int64(index), 10)
	out = append(out, "] "...)
	if room := MaxTagged - len(out); len(payload) > room {
		payload = payload[:room]
	}
	return append(out, payload...)
}
