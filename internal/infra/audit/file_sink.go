package audit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"quiz-session-engine/internal/domain"
)

const separator = "--------------------------------"

// FileSink appends human-readable standings blocks to a rotating file.
type FileSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewFileSink opens a lumberjack-backed audit log at path.
func NewFileSink(path string, maxSizeMB, maxBackups int) *FileSink {
	return NewWriterSink(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	})
}

func NewWriterSink(w io.Writer) *FileSink {
	return &FileSink{out: w}
}

func (s *FileSink) Append(_ context.Context, standings domain.Standings) error {
	block := Format(standings)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(block); err != nil {
		return fmt.Errorf("write audit block: %w", err)
	}
	return nil
}

// Close releases the underlying file when it is closable.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Format renders one standings block:
//
//	[2006-01-02 15:04:05] session=<id> progress round <n>
//	1. alice (3 pts)
//
//	--------------------------------
func Format(standings domain.Standings) []byte {
	kind := "progress"
	if standings.Final {
		kind = "final"
	}
	at := standings.TakenAt
	if at.IsZero() {
		at = time.Now()
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] session=%s %s round %d\n", at.Format(time.DateTime), standings.SessionID, kind, standings.Round)
	for _, e := range standings.Entries {
		fmt.Fprintf(&b, "%d. %s (%d pts)\n", e.Rank, e.ParticipantID, e.Score)
	}
	b.WriteString("\n")
	b.WriteString(separator)
	b.WriteString("\n")
	return b.Bytes()
}
