package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected nop logger when no level is configured")
	}
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	if err := Initialize("loud"); err == nil {
		t.Error("Initialize(loud) should fail")
	}
}

func TestHexDumpTruncates(t *testing.T) {
	data := make([]byte, 300)
	got := HexDump(data)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("HexDump of 300 bytes should be truncated, got len %d", len(got))
	}
	if len(got) != 2*maxDumpBytes+3 {
		t.Errorf("HexDump length = %d, want %d", len(got), 2*maxDumpBytes+3)
	}
	if HexDump(nil) != "" {
		t.Error("HexDump(nil) should be empty")
	}
}

func TestToASCII(t *testing.T) {
	got := ToASCII([]byte("hi\x00\n~"))
	if got != "hi..~" {
		t.Errorf("ToASCII = %q, want %q", got, "hi..~")
	}
}

func TestLogWireOnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogWire("c1", "127.0.0.1:1", "read", []byte("abc"))
	if logs.Len() != 0 {
		t.Fatalf("LogWire at info level wrote %d entries, want 0", logs.Len())
	}

	core, logs = observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))

	LogWire("c1", "127.0.0.1:1", "read", []byte("abc"))
	if logs.Len() != 1 {
		t.Fatalf("LogWire at debug level wrote %d entries, want 1", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["hex"] != "616263" {
		t.Errorf("hex field = %v, want 616263", fields["hex"])
	}
	if fields["direction"] != "read" {
		t.Errorf("direction field = %v, want read", fields["direction"])
	}
}
