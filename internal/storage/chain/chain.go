package chain

import (
	"errors"
	"fmt"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

const seedLabel = "reasonjournal/seed/v1"

var (
	// ErrSequence is returned when a record's sequence breaks contiguity.
	ErrSequence = errors.New("chain: sequence out of order")

	// ErrTagMismatch is returned when a recomputed tag differs from the stored one.
	ErrTagMismatch = errors.New("chain: tag mismatch")
)

// Chain computes record tags with a keyed MAC.
type Chain struct {
	mac     mac.MAC
	scratch []byte
}

// New returns a Chain using m. The caller keeps ownership of m.
func New(m mac.MAC) *Chain {
	return &Chain{mac: m}
}

// Seed returns the tag the first record links to.
func (c *Chain) Seed() domain.Tag {
	var zero [domain.TagSize]byte
	return c.mac.Sum([]byte(seedLabel), zero[:])
}

// Next returns the tag for r given its predecessor's tag.
func (c *Chain) Next(prev domain.Tag, r *domain.Record) domain.Tag {
	c.scratch = block.AppendBody(c.scratch[:0], r)
	return c.mac.Sum(prev[:], c.scratch)
}

// Verify reports whether r.ChainTag is correct for prev. The comparison
// runs in constant time.
func (c *Chain) Verify(prev domain.Tag, r *domain.Record) bool {
	return mac.Equal(c.Next(prev, r), r.ChainTag)
}

// State is the position of a chain after its last record.
type State struct {
	NextSequence  uint64
	LastTag       domain.Tag
	LastTimestamp uint64
}

// Start returns the state of an empty chain.
func (c *Chain) Start() State {
	return State{LastTag: c.Seed()}
}

// Link checks that r continues st and advances st past it.
func (c *Chain) Link(st *State, r *domain.Record) error {
	if r.Sequence != st.NextSequence {
		return fmt.Errorf("%w: got %d, want %d", ErrSequence, r.Sequence, st.NextSequence)
	}
	if !c.Verify(st.LastTag, r) {
		return ErrTagMismatch
	}
	st.Advance(r)
	return nil
}

// Seal assigns r's tag from st and advances st past it.
func (c *Chain) Seal(st *State, r *domain.Record) {
	r.ChainTag = c.Next(st.LastTag, r)
	st.Advance(r)
}

// Advance moves st past r without checking it.
func (st *State) Advance(r *domain.Record) {
	st.NextSequence = r.Sequence + 1
	st.LastTag = r.ChainTag
	if r.Timestamp > st.LastTimestamp {
		st.LastTimestamp = r.Timestamp
	}
}
