package respserver

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/yndnr/reasonjournal/internal/core/domain"
	"github.com/yndnr/reasonjournal/internal/core/service"
)

// commandTimeout bounds one journal call.
const commandTimeout = 30 * time.Second

type commandFunc func(s *Server, ctx context.Context, w *Writer, args [][]byte) error

type commandSpec struct {
	fn    commandFunc
	arity int // exact argument count including the name; negative means at least -arity
}

var commands = map[string]commandSpec{
	"PING":       {cmdPing, -1},
	"QUIT":       {nil, 1},
	"RJ.APPEND":  {cmdAppend, 3},
	"RJ.NEXTSEQ": {cmdNextSeq, 1},
	"RJ.STATS":   {cmdStats, 1},
	"RJ.VERIFY":  {cmdVerify, 1},
	"RJ.SYNC":    {cmdSync, 1},
}

// dispatch runs one command and reports whether the connection should
// close after the reply is flushed.
func (s *Server) dispatch(w *Writer, args [][]byte) bool {
	name := commandName(args[0])
	start := time.Now()

	c, ok := commands[name]
	status := "ok"
	switch {
	case !ok:
		status = "unknown"
		_ = w.Error("ERR", "unknown command '"+string(args[0])+"'")
	case c.arity >= 0 && len(args) != c.arity, c.arity < 0 && len(args) < -c.arity:
		status = "error"
		_ = w.Error("ERR", "wrong number of arguments for '"+name+"'")
	case name == "QUIT":
		_ = w.SimpleString("OK")
		s.observe(name, status, start)
		return true
	default:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		if err := c.fn(s, ctx, w, args); err != nil {
			status = "error"
			s.writeError(w, err)
		}
		cancel()
	}

	if ok {
		s.observe(name, status, start)
	} else {
		s.observe("unknown", status, start)
	}
	return false
}

func (s *Server) observe(name, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest("RESP", name, status, time.Since(start))
	}
}

// writeError maps journal errors to a class prefix.
func (s *Server) writeError(w *Writer, err error) {
	var corrupt *domain.CorruptionError
	switch {
	case errors.As(err, &corrupt):
		msg := "offset=" + strconv.FormatInt(corrupt.Offset, 10) + " reason=" + corrupt.Reason
		if corrupt.HasSequence {
			msg = "sequence=" + strconv.FormatUint(corrupt.Sequence, 10) + " " + msg
		}
		_ = w.Error("CORRUPT", msg)
	case errors.Is(err, domain.ErrOverflow):
		_ = w.Error("OVERFLOW", err.Error())
	case errors.Is(err, domain.ErrState):
		_ = w.Error("STATE", err.Error())
	case errors.Is(err, domain.ErrIO):
		s.logger.Error("journal I/O failure", "error", err)
		_ = w.Error("IO", err.Error())
	default:
		_ = w.Error("ERR", err.Error())
	}
}

func cmdPing(_ *Server, _ context.Context, w *Writer, args [][]byte) error {
	if len(args) > 1 {
		return w.Bulk(args[1])
	}
	return w.SimpleString("PONG")
}

func cmdAppend(s *Server, ctx context.Context, w *Writer, args [][]byte) error {
	payload := args[2]
	if payload == nil {
		payload = []byte{}
	}
	resp, err := s.svc.Append(ctx, &service.AppendRequest{
		ReasonTag: string(args[1]),
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	_ = w.ArrayHeader(3)
	_ = w.Integer(int64(resp.Sequence))
	_ = w.Integer(int64(resp.Timestamp))
	return w.BulkString(resp.ChainTag)
}

func cmdNextSeq(s *Server, ctx context.Context, w *Writer, _ [][]byte) error {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return err
	}
	return w.Integer(int64(st.NextSequence))
}

func cmdStats(s *Server, ctx context.Context, w *Writer, _ [][]byte) error {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return err
	}
	return w.Pairs(
		"next_sequence", strconv.FormatUint(st.NextSequence, 10),
		"total_blocks", strconv.FormatUint(st.Session.TotalBlocks, 10),
		"write_time_ms", strconv.FormatFloat(st.Session.WriteTimeMs, 'f', 3, 64),
		"avg_latency_us", strconv.FormatFloat(st.Session.AvgLatencyUs, 'f', 3, 64),
	)
}

func cmdVerify(s *Server, ctx context.Context, w *Writer, _ [][]byte) error {
	report, err := s.svc.Verify(ctx)
	if err != nil {
		return err
	}
	return w.Pairs(
		"valid", strconv.FormatBool(report.Valid),
		"records", strconv.FormatUint(report.Records, 10),
		"algorithm", report.Algorithm,
		"last_tag", report.LastTag,
		"duration_us", strconv.FormatInt(report.Duration.Microseconds(), 10),
	)
}

func cmdSync(s *Server, ctx context.Context, w *Writer, _ [][]byte) error {
	if err := s.svc.Sync(ctx); err != nil {
		return err
	}
	return w.SimpleString("OK")
}
