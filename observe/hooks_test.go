package observe

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/relayops/relaykit/resilience"
)

func lastLogEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	return entry
}

func TestLogStateChanges_OpenAtWarn(t *testing.T) {
	var buf bytes.Buffer
	hook := LogStateChanges(NewLoggerWithWriter("info", &buf), "email-api")

	hook(resilience.StateClosed, resilience.StateOpen)

	entry := lastLogEntry(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn on open", entry["level"])
	}
	if entry["breaker"] != "email-api" || entry["to"] != "open" {
		t.Errorf("fields = %v", entry)
	}
}

func TestLogStateChanges_RecoveryAtInfo(t *testing.T) {
	var buf bytes.Buffer
	hook := LogStateChanges(NewLoggerWithWriter("info", &buf), "email-api")

	hook(resilience.StateHalfOpen, resilience.StateClosed)

	entry := lastLogEntry(t, &buf)
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info on recovery", entry["level"])
	}
}

func TestLogRetries(t *testing.T) {
	var buf bytes.Buffer
	hook := LogRetries(NewLoggerWithWriter("info", &buf), "send-email")

	hook(2, 150*time.Millisecond, errors.New("connection reset"))

	entry := lastLogEntry(t, &buf)
	if entry["operation"] != "send-email" {
		t.Errorf("operation = %v", entry["operation"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", entry["attempt"])
	}
	if entry["delay_ms"] != float64(150) {
		t.Errorf("delay_ms = %v, want 150", entry["delay_ms"])
	}
}

func TestLogRateLimits(t *testing.T) {
	var buf bytes.Buffer
	hook := LogRateLimits(NewLoggerWithWriter("info", &buf), "per-ip")

	hook("ip:198.51.100.2")

	entry := lastLogEntry(t, &buf)
	if entry["limiter"] != "per-ip" || entry["key"] != "ip:198.51.100.2" {
		t.Errorf("fields = %v", entry)
	}
}

func TestJoinStateHooks_FansOut(t *testing.T) {
	calls := 0
	h := func(from, to resilience.State) { calls++ }

	joined := JoinStateHooks(h, nil, h)
	joined(resilience.StateClosed, resilience.StateOpen)

	if calls != 2 {
		t.Errorf("hooks fired %d times, want 2", calls)
	}
}
