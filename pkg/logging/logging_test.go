package logging

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/hotplug"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want zerolog.Level
	}{
		{"default", Config{}, zerolog.InfoLevel},
		{"explicit", Config{Level: "warn"}, zerolog.WarnLevel},
		{"debug flag wins", Config{Level: "error", Debug: true}, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewWithWriter(tt.cfg, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("NewWithWriter failed: %v", err)
			}
			if logger.GetLevel() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, logger.GetLevel())
			}
		})
	}
}

func TestNewWithWriter_InvalidLevel(t *testing.T) {
	if _, err := NewWithWriter(Config{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(DefaultConfig(), &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	WithComponent(logger, "sysfs").Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"sysfs"`) || !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Console: true}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	logger.Info().Msg("plain")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestAttach(t *testing.T) {
	var buf syncBuffer
	logger, err := NewWithWriter(Config{Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}
	Attach(logger)

	capitan.Emit(context.Background(), hotplug.TransitionReported,
		hotplug.KeyController.Field("/dev/dri/card42"),
		hotplug.KeyConnector.Field("eDP-1"),
		hotplug.KeyConnectorID.Field(77),
		hotplug.KeyState.Field("connected"),
	)

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(buf.String(), "card42") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	out := buf.String()
	for _, want := range []string{
		`"level":"info"`,
		`"controller":"/dev/dri/card42"`,
		`"connector":"eDP-1"`,
		`"connector_id":77`,
		`"signal":"hotplug.transition.reported"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %q", want, out)
		}
	}
}
