package pool

import "context"

// Stats is a point-in-time snapshot of a pool's published state, derived
// entirely from the header (no extra on-disk structure) for the CLI's
// `plasmite list -v` and the HTTP adapter's pool-listing route
// (SPEC_FULL.md §6.3).
type Stats struct {
	Oldest             uint64
	Newest             uint64
	HasMessages        bool
	RingSize           uint64
	IndexCapacity      uint64
	MessageCount       uint64
	RingUtilizationPct float64
	IndexLoadFactor    float64
}

// Stat returns a Stats snapshot for the pool.
func (p *Pool) Stat() (Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, err := p.readHeader()
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		Oldest:        h.oldestSeq,
		Newest:        h.newestSeq,
		HasMessages:   h.hasMessages,
		RingSize:      h.ringSize,
		IndexCapacity: h.indexCapacity,
	}
	if h.hasMessages {
		s.MessageCount = h.newestSeq - h.oldestSeq + 1
	}
	if h.ringSize > 0 {
		s.RingUtilizationPct = 100 * float64(h.headOffset) / float64(h.ringSize)
	}
	if h.indexCapacity > 0 {
		occupied := s.MessageCount
		if occupied > h.indexCapacity {
			occupied = h.indexCapacity
		}
		s.IndexLoadFactor = float64(occupied) / float64(h.indexCapacity)
	}
	return s, nil
}

// WaitForSeq blocks until seq is appended (or already present), the
// pool's bounds pass it by eviction (a Lag error), or ctx ends. It is
// built from OpenStream + Wait rather than a new primitive, so HTTP
// long-poll routes don't need to reimplement the tail discipline
// (SPEC_FULL.md §6.3).
func (p *Pool) WaitForSeq(ctx context.Context, seq uint64) (Message, error) {
	if seq == 0 {
		return Message{}, usagef("seq must be >= 1")
	}
	stream := p.OpenStream(seq - 1)
	if err := stream.Wait(ctx); err != nil {
		return Message{}, err
	}
	msgs, err := stream.Next(1)
	if err != nil {
		return Message{}, err
	}
	if len(msgs) == 0 {
		return Message{}, internalf("WaitForSeq: Wait returned ready but Next yielded nothing for seq %d", seq)
	}
	return msgs[0], nil
}
