package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sandover/plasmite/envelope"
	"github.com/sandover/plasmite/pool"
)

const (
	defaultStreamMax = 100
	maxStreamMax     = 1000
)

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warnw("failed encoding response body", "err", err)
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, reqID string, err error) {
	body := envelope.FromError(err)
	h.logger.Warnw("request failed", "request_id", reqID, "code", body.Code, "err", err)
	h.writeJSON(w, envelope.HTTPStatus(err), body)
}

// requestID pulls a correlation id for structured logging; every request
// gets one, generated fresh, since plasmite's HTTP adapter has no
// upstream tracing context to inherit one from.
func requestID() string {
	return uuid.New().String()
}

// ListPoolsHandler lists the pool names known to the registry.
func (h *Handler) ListPoolsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	names, err := h.registry.List()
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}

	verbose := r.URL.Query().Get("verbose") == "true"
	pools := make([]interface{}, 0, len(names))
	for _, name := range names {
		if !verbose {
			pools = append(pools, map[string]interface{}{"name": name})
			continue
		}
		stat, err := h.statPool(name)
		if err != nil {
			h.writeErr(w, reqID, err)
			return
		}
		pools = append(pools, stat)
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"pools": pools})
}

func (h *Handler) statPool(name string) (map[string]interface{}, error) {
	p, err := h.registry.Open("name:" + name)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	s, err := p.Stat()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"name":                 name,
		"oldest":               s.Oldest,
		"newest":               s.Newest,
		"has_messages":         s.HasMessages,
		"message_count":        s.MessageCount,
		"ring_utilization_pct": s.RingUtilizationPct,
		"index_load_factor":    s.IndexLoadFactor,
	}, nil
}

// CreatePoolHandler creates a new pool file named by the {name} path
// segment, sized by the size_bytes query parameter.
func (h *Handler) CreatePoolHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	name := mux.Vars(r)["name"]

	sizeBytes, err := strconv.ParseUint(r.URL.Query().Get("size_bytes"), 10, 64)
	if err != nil {
		h.writeErr(w, reqID, usageError("size_bytes query parameter is required and must be a positive integer"))
		return
	}

	p, err := h.registry.Create("name:"+name, pool.CreateOptions{SizeBytes: sizeBytes})
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}
	defer p.Close()

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"name": name})
}

// DeletePoolHandler removes a pool file.
func (h *Handler) DeletePoolHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	name := mux.Vars(r)["name"]

	if err := h.registry.Delete("name:" + name); err != nil {
		h.writeErr(w, reqID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendHandler appends the request body as a single message.
func (h *Handler) AppendHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	name := mux.Vars(r)["name"]

	payload, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		h.writeErr(w, reqID, usageError("failed reading request body"))
		return
	}

	p, err := h.registry.Open("name:" + name)
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}
	defer p.Close()

	durability := pool.Fast
	if r.URL.Query().Get("durability") == "flush" {
		durability = pool.Flush
	}

	res, err := p.Append(r.Context(), payload, durability)
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"seq":          res.Seq,
		"timestamp_ns": res.TimestampNs,
	})
}

// GetHandler returns a single message by sequence number.
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	vars := mux.Vars(r)
	name := vars["name"]

	seq, err := strconv.ParseUint(vars["seq"], 10, 64)
	if err != nil {
		h.writeErr(w, reqID, usageError("seq path segment must be a non-negative integer"))
		return
	}

	p, err := h.registry.Open("name:" + name)
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}
	defer p.Close()

	msg, err := p.Get(seq)
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope.FromPool(msg))
}

// BoundsHandler returns the pool's current oldest/newest sequence range.
func (h *Handler) BoundsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	name := mux.Vars(r)["name"]

	p, err := h.registry.Open("name:" + name)
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}
	defer p.Close()

	oldest, newest, has, err := p.Bounds()
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope.Bounds{Oldest: oldest, Newest: newest, HasMessages: has})
}

// StreamHandler returns up to `max` messages starting after `since`,
// optionally waiting up to `wait_ms` for at least one to arrive (spec
// §4.7 tail, adapted to a single request/response HTTP round trip rather
// than a long-lived connection).
func (h *Handler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID()
	name := mux.Vars(r)["name"]
	q := r.URL.Query()

	since, _ := strconv.ParseUint(q.Get("since"), 10, 64)

	max := defaultStreamMax
	if v, err := strconv.Atoi(q.Get("max")); err == nil && v > 0 {
		max = v
	}
	if max > maxStreamMax {
		max = maxStreamMax
	}

	waitMs, _ := strconv.Atoi(q.Get("wait_ms"))

	p, err := h.registry.Open("name:" + name)
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}
	defer p.Close()

	stream := p.OpenStream(since)
	h.logger.Debugw("stream opened", "request_id", reqID, "stream_id", stream.ID(), "since", since)

	var msgs []pool.Message
	if waitMs > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(waitMs)*time.Millisecond)
		defer cancel()
		msgs, err = stream.NextWait(ctx, max)
		if err == context.DeadlineExceeded {
			msgs, err = nil, nil
		}
	} else {
		msgs, err = stream.Next(max)
	}
	if err != nil {
		h.writeErr(w, reqID, err)
		return
	}

	out := make([]envelope.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, envelope.FromPool(m))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": out,
		"next_seq": stream.NextSeq(),
	})
}

func usageError(msg string) error {
	return &pool.Error{Code: pool.CodeUsage, Msg: msg}
}
