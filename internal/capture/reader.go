package capture

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// ReadJSONL reads every record of a capture file.
func ReadJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeJSONL(f)
}

// DecodeJSONL decodes a stream of capture records from r. Records have no
// size limit; a malformed record is reported with its position.
func DecodeJSONL(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)

	var records []Record
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Payload returns the decoded payload bytes.
func (r Record) Payload() ([]byte, error) {
	return hex.DecodeString(r.PayloadHex)
}

// ConnSummary aggregates the records of one connection.
type ConnSummary struct {
	ConnID     string
	RemoteAddr string
	Mode       string
	Records    int
	Bytes      int
	First      time.Time
	Last       time.Time
}

// Summarize groups records by connection, ordered by first activity.
func Summarize(records []Record) []ConnSummary {
	byConn := make(map[string]*ConnSummary)
	for _, rec := range records {
		s, ok := byConn[rec.ConnID]
		if !ok {
			s = &ConnSummary{
				ConnID:     rec.ConnID,
				RemoteAddr: rec.RemoteAddr,
				Mode:       rec.Mode,
				First:      rec.Timestamp,
				Last:       rec.Timestamp,
			}
			byConn[rec.ConnID] = s
		}
		s.Records++
		s.Bytes += rec.PayloadLen
		if rec.Timestamp.Before(s.First) {
			s.First = rec.Timestamp
		}
		if rec.Timestamp.After(s.Last) {
			s.Last = rec.Timestamp
		}
	}

	out := make([]ConnSummary, 0, len(byConn))
	for _, s := range byConn {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].First.Equal(out[j].First) {
			return out[i].ConnID < out[j].ConnID
		}
		return out[i].First.Before(out[j].First)
	})
	return out
}
