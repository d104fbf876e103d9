package capture

import (
	"errors"

	"go.uber.org/zap"

	"github.com/develotters/wiretap/internal/logging"
)

// Sink persists capture records.
type Sink interface {
	Write(Record) error
	Close() error
}

// Recorder writes records to every configured sink.
type Recorder struct {
	sinks []Sink
}

// NewRecorder returns a Recorder over sinks, or nil when there are none.
func NewRecorder(sinks ...Sink) *Recorder {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return &Recorder{sinks: live}
}

// Enabled reports whether records will be written anywhere.
func (r *Recorder) Enabled() bool {
	return r != nil && len(r.sinks) > 0
}

// Record writes rec to all sinks, logging failures.
func (r *Recorder) Record(rec Record) {
	if !r.Enabled() {
		return
	}
	for _, s := range r.sinks {
		if err := s.Write(rec); err != nil {
			logging.Warn("Failed to write capture record",
				zap.String("conn_id", rec.ConnID),
				zap.String("kind", string(rec.Kind)),
				zap.Error(err),
			)
		}
	}
}

// Close closes every sink and joins their errors.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds a Recorder from a capture directory and a database path.
// Either may be empty; with both empty the result is nil.
func Open(dir, dbPath string) (*Recorder, error) {
	var sinks []Sink
	if dir != "" {
		s, err := OpenJSONL(dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if dbPath != "" {
		s, err := OpenSQLite(dbPath)
		if err != nil {
			for _, open := range sinks {
				_ = open.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return NewRecorder(sinks...), nil
}
