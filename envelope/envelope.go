// Package envelope defines the JSON wire representation of pool messages
// used by the HTTP adapter (SPEC_FULL.md §6.3).
package envelope

import (
	"encoding/base64"
	"time"

	"github.com/sandover/plasmite/pool"
)

// Meta carries adapter-layer annotations the engine itself never reads
// (spec §6: "Tags live in the adapter layer; the engine does not read
// payload bytes").
type Meta struct {
	Tags []string `json:"tags"`
}

// Message is the JSON envelope spec §6 describes: `{seq, time, meta,
// data}`, with data base64-encoded since payloads are opaque bytes (spec
// §3), not assumed to be valid UTF-8/JSON themselves.
type Message struct {
	Seq  uint64 `json:"seq"`
	Time string `json:"time"`
	Meta Meta   `json:"meta"`
	Data string `json:"data"`
}

// FromPool converts an engine message to its wire envelope. tags is the
// adapter-supplied annotation list; pass nil for none.
func FromPool(m pool.Message, tags ...string) Message {
	if tags == nil {
		tags = []string{}
	}
	return Message{
		Seq:  m.Seq,
		Time: time.Unix(0, int64(m.TimestampNs)).UTC().Format(time.RFC3339Nano),
		Meta: Meta{Tags: tags},
		Data: base64.StdEncoding.EncodeToString(m.Payload),
	}
}

// Decode recovers the raw payload bytes from a wire message.
func (m Message) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Data)
}

// Bounds is the wire form of a pool's current oldest/newest sequence
// range (spec §4.6 stat operation).
type Bounds struct {
	Oldest      uint64 `json:"oldest,omitempty"`
	Newest      uint64 `json:"newest,omitempty"`
	HasMessages bool   `json:"has_messages"`
}

// ErrorBody is the JSON error shape returned by the HTTP adapter,
// carrying the same discriminant taxonomy as pool.Error (spec §7).
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Oldest  uint64 `json:"oldest,omitempty"`
	Newest  uint64 `json:"newest,omitempty"`
}

// FromError builds an ErrorBody from a pool.Error, falling back to a
// generic Internal code for errors that don't carry the discriminant.
func FromError(err error) ErrorBody {
	perr, ok := err.(*pool.Error)
	if !ok {
		return ErrorBody{Code: pool.CodeInternal.String(), Message: err.Error()}
	}
	body := ErrorBody{Code: perr.Code.String(), Message: perr.Error()}
	if perr.HasBounds {
		body.Oldest, body.Newest = perr.Oldest, perr.Newest
	}
	return body
}

// HTTPStatus maps a pool.Error discriminant to the HTTP status code the
// server adapter should respond with.
func HTTPStatus(err error) int {
	perr, ok := err.(*pool.Error)
	if !ok {
		return 500
	}
	switch perr.Code {
	case pool.CodeUsage:
		return 400
	case pool.CodeNotFound:
		return 404
	case pool.CodeAlreadyExists:
		return 409
	case pool.CodeBusy:
		return 409
	case pool.CodePermission:
		return 403
	case pool.CodeLag:
		return 410
	case pool.CodeCorrupt, pool.CodeIO, pool.CodeInternal:
		return 500
	default:
		return 500
	}
}
