package service

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/storage"
	"github.com/yndnr/reasonjournal/internal/telemetry/metric"
)

// JournalRepository is the journal context the service serializes.
// *storage.Journal implements it.
type JournalRepository interface {
	AppendWithLatency(reason string, payload []byte) (storage.AppendResult, error)
	Metrics() (metric.Snapshot, error)
	Verify() (*storage.VerifyReport, error)
	Sync() error
	Close() error
	NextSequence() uint64
	State() storage.State
}

// JournalService gives concurrent callers serialized access to one
// journal context.
type JournalService struct {
	mu   sync.Mutex
	repo JournalRepository
}

// NewJournalService creates a JournalService over repo.
func NewJournalService(repo JournalRepository) *JournalService {
	return &JournalService{repo: repo}
}

// ============================================================================
// Append
// ============================================================================

// AppendRequest contains the fields of a new record.
type AppendRequest struct {
	ReasonTag string
	Payload   []byte
}

// AppendResponse describes a committed record.
type AppendResponse struct {
	Sequence  uint64        `json:"sequence"`
	Timestamp uint64        `json:"timestamp"`
	ChainTag  string        `json:"chain_tag"`
	Latency   time.Duration `json:"-"`
	LatencyUs float64       `json:"latency_us"`
}

// Append commits one record.
func (s *JournalService) Append(ctx context.Context, req *AppendRequest) (*AppendResponse, error) {
	if req == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("empty request")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.repo.AppendWithLatency(req.ReasonTag, req.Payload)
	if err != nil {
		return nil, err
	}
	return &AppendResponse{
		Sequence:  res.Record.Sequence,
		Timestamp: res.Record.Timestamp,
		ChainTag:  res.Record.ChainTag.String(),
		Latency:   res.Latency,
		LatencyUs: res.LatencyMicros(),
	}, nil
}

// ============================================================================
// Queries
// ============================================================================

// Stats is the service view of the journal.
type Stats struct {
	NextSequence uint64          `json:"next_sequence"`
	Session      metric.Snapshot `json:"session"`
}

// Stats returns the append metrics of the open context.
func (s *JournalService) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.repo.Metrics()
	if err != nil {
		return nil, err
	}
	return &Stats{NextSequence: s.repo.NextSequence(), Session: snap}, nil
}

// Verify checks the whole chain. Appends wait until it finishes.
func (s *JournalService) Verify(ctx context.Context) (*storage.VerifyReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.Verify()
}

// Ready reports whether the journal accepts appends.
func (s *JournalService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.State() == storage.StateOpen
}

// ============================================================================
// Lifecycle
// ============================================================================

// Sync flushes pending batch appends.
func (s *JournalService) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Sync()
}

// Close closes the underlying journal. Later calls fail with domain.ErrState.
func (s *JournalService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Close()
}
