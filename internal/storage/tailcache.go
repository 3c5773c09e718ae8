package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage/block"
	"github.com/yndnr/reasonjournal/internal/storage/chain"
	"github.com/yndnr/reasonjournal/pkg/crypto/mac"
)

const (
	// TailExtension is appended to the journal path to name its tail cache.
	TailExtension = ".tail"

	tailVersion = 1
	tailLabel   = "reasonjournal/tail/v1"
)

var errTailStale = errors.New("tail cache does not match journal")

// tailPointer records where the chain stood at the last clean close.
type tailPointer struct {
	Version       uint8  `cbor:"1,keyasint"`
	NextSequence  uint64 `cbor:"2,keyasint"`
	LastTag       []byte `cbor:"3,keyasint"`
	LastTimestamp uint64 `cbor:"4,keyasint"`
	LastOffset    int64  `cbor:"5,keyasint"`
	EndOffset     int64  `cbor:"6,keyasint"`
}

// tailFile is the on-disk envelope: the encoded pointer and its MAC.
type tailFile struct {
	Body []byte `cbor:"1,keyasint"`
	MAC  []byte `cbor:"2,keyasint"`
}

var tailEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// tailPathFor returns the tail cache path of a journal file.
func tailPathFor(journalPath string) string {
	return journalPath + TailExtension
}

func encodeTail(p tailPointer, m mac.MAC) ([]byte, error) {
	body, err := tailEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode tail pointer: %w", err)
	}
	sum := m.Sum([]byte(tailLabel), body)
	return tailEncMode.Marshal(tailFile{Body: body, MAC: sum[:]})
}

func decodeTail(data []byte, m mac.MAC) (tailPointer, error) {
	var f tailFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return tailPointer{}, fmt.Errorf("decode tail file: %w", err)
	}

	want := m.Sum([]byte(tailLabel), f.Body)
	var got [mac.Size]byte
	if len(f.MAC) != mac.Size {
		return tailPointer{}, errors.New("tail cache mac has wrong length")
	}
	copy(got[:], f.MAC)
	if !mac.Equal(want, got) {
		return tailPointer{}, errors.New("tail cache mac mismatch")
	}

	var p tailPointer
	if err := cbor.Unmarshal(f.Body, &p); err != nil {
		return tailPointer{}, fmt.Errorf("decode tail pointer: %w", err)
	}
	if p.Version != tailVersion {
		return tailPointer{}, fmt.Errorf("unsupported tail cache version %d", p.Version)
	}
	if len(p.LastTag) != domain.TagSize {
		return tailPointer{}, errors.New("tail cache tag has wrong length")
	}
	return p, nil
}

// writeTail persists the chain position for the next open.
func writeTail(path string, st chain.State, lastOffset, end int64, m mac.MAC, perm os.FileMode) error {
	data, err := encodeTail(tailPointer{
		Version:       tailVersion,
		NextSequence:  st.NextSequence,
		LastTag:       append([]byte(nil), st.LastTag[:]...),
		LastTimestamp: st.LastTimestamp,
		LastOffset:    lastOffset,
		EndOffset:     end,
	}, m)
	if err != nil {
		return err
	}
	return writeFileAtomic(tailPathFor(path), data, perm)
}

// consumeTail reads and removes the tail cache. It returns the chain state
// and end offset only when the pointer authenticates and agrees with the
// file: its end equals size and the record at LastOffset is the last one
// with the recorded sequence, tag and timestamp.
func consumeTail(ra io.ReaderAt, path string, size int64, limits domain.Limits, m mac.MAC, ch *chain.Chain) (tailState, error) {
	tp := tailPathFor(path)
	data, err := os.ReadFile(tp)
	if err != nil {
		return tailState{}, err
	}
	if err := os.Remove(tp); err != nil {
		return tailState{}, fmt.Errorf("remove tail cache: %w", err)
	}

	p, err := decodeTail(data, m)
	if err != nil {
		return tailState{}, err
	}
	if p.EndOffset != size {
		return tailState{}, errTailStale
	}

	var st chain.State
	copy(st.LastTag[:], p.LastTag)
	st.NextSequence = p.NextSequence
	st.LastTimestamp = p.LastTimestamp

	if p.NextSequence == 0 {
		if p.EndOffset != block.HeaderSize || st.LastTag != ch.Seed() {
			return tailState{}, errTailStale
		}
		return tailState{state: st, end: p.EndOffset}, nil
	}

	if p.LastOffset < block.HeaderSize || p.LastOffset >= p.EndOffset {
		return tailState{}, errTailStale
	}
	buf := make([]byte, p.EndOffset-p.LastOffset)
	if _, err := ra.ReadAt(buf, p.LastOffset); err != nil {
		return tailState{}, fmt.Errorf("read last record: %w", err)
	}
	rec, n, err := block.Decode(buf, limits)
	if err != nil || n != len(buf) {
		return tailState{}, errTailStale
	}
	if rec.Sequence != p.NextSequence-1 || !bytes.Equal(rec.ChainTag[:], p.LastTag) || rec.Timestamp != p.LastTimestamp {
		return tailState{}, errTailStale
	}
	return tailState{state: st, lastOffset: p.LastOffset, end: p.EndOffset}, nil
}

// tailState is the chain position restored from a trusted tail cache.
type tailState struct {
	state      chain.State
	lastOffset int64
	end        int64
}
