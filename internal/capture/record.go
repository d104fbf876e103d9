package capture

import (
	"encoding/hex"
	"time"

	"github.com/develotters/wiretap/internal/logging"
)

// Kind identifies what produced a payload.
type Kind string

const (
	KindTCPChunk Kind = "tcp_chunk"
	KindWSText   Kind = "ws_text"
	KindWSBinary Kind = "ws_binary"
)

// Record is a single captured payload.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	ConnID       string    `json:"conn_id"`
	RemoteAddr   string    `json:"remote_addr"`
	Mode         string    `json:"mode"`
	Kind         Kind      `json:"kind"`
	PayloadLen   int       `json:"payload_length"`
	PayloadHex   string    `json:"payload_hex"`
	PayloadASCII string    `json:"payload_ascii"`
}

// NewRecord builds a Record for payload, stamped with the current time.
func NewRecord(connID, remoteAddr, mode string, kind Kind, payload []byte) Record {
	return Record{
		Timestamp:    time.Now(),
		ConnID:       connID,
		RemoteAddr:   remoteAddr,
		Mode:         mode,
		Kind:         kind,
		PayloadLen:   len(payload),
		PayloadHex:   hex.EncodeToString(payload),
		PayloadASCII: logging.ToASCII(payload),
	}
}
