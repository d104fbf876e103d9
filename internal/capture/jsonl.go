package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/develotters/wiretap/internal/logging"
)

// JSONLSink appends records to a JSON Lines file.
type JSONLSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	enc  *json.Encoder
}

// OpenJSONL creates capture-<timestamp>.jsonl in dir. dir must exist.
func OpenJSONL(dir string) (*JSONLSink, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("capture directory does not exist: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access capture directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("capture path is not a directory: %s", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing payloads to file", zap.String("filename", path))

	return &JSONLSink{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

// Path returns the file being written.
func (s *JSONLSink) Path() string {
	return s.path
}

// Write appends rec as one line.
func (s *JSONLSink) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("capture file %s is closed", s.path)
	}
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write to capture file: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Further writes fail.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
