package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"remindbot/pkg/logx"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "15s"
logging:
  level: debug
  console: true
storage:
  path: "./data/bot.db"
  busy_timeout: "2s"
scheduler:
  timezone: "Europe/Moscow"
  reconcile_interval: "1m"
notify:
  rate_per_sec: 5
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "bot.yaml", sampleYAML), logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if got := cfg.PollTimeout(); got != 15*time.Second {
		t.Fatalf("poll timeout = %v", got)
	}
	if got := cfg.ReconcileInterval(); got != time.Minute {
		t.Fatalf("reconcile interval = %v", got)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Moscow" {
		t.Fatalf("location = %v, %v", loc, err)
	}
	if m.Get() != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestDefaultsWhenOmitted(t *testing.T) {
	t.Parallel()
	body := "telegram:\n  token: \"t\"\nstorage:\n  path: \"./x.db\"\n"
	m := NewManager(writeConfig(t, "bot.yaml", body), logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollTimeout() != 10*time.Second {
		t.Fatalf("poll timeout default = %v", cfg.PollTimeout())
	}
	if cfg.BusyTimeout() != 5*time.Second {
		t.Fatalf("busy timeout default = %v", cfg.BusyTimeout())
	}
	if cfg.ReconcileInterval() != 5*time.Minute {
		t.Fatalf("reconcile default = %v", cfg.ReconcileInterval())
	}
	if loc, err := cfg.Location(); err != nil || loc != time.Local {
		t.Fatalf("location default = %v, %v", loc, err)
	}
}

func TestParseRejectsBadConfigs(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown_field", sampleYAML + "\nmystery: 1\n", "mystery"},
		{"missing_token", "storage:\n  path: \"x.db\"\n", "telegram.token"},
		{"missing_path", "telegram:\n  token: \"t\"\n", "storage.path"},
		{"bad_duration", "telegram:\n  token: \"t\"\n  poll_timeout: \"soon\"\nstorage:\n  path: \"x.db\"\n", "poll_timeout"},
		{"bad_timezone", "telegram:\n  token: \"t\"\nstorage:\n  path: \"x.db\"\nscheduler:\n  timezone: \"Mars/Olympus\"\n", "timezone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := NewManager(writeConfig(t, "bot.yaml", tc.body), logx.Nop())
			_, err := m.Parse()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "bot.yaml", sampleYAML)
	m := NewManager(path, logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	updated := strings.Replace(sampleYAML, `rate_per_sec: 5`, `rate_per_sec: 9`, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-ch:
		if cfg.Notify.RatePerSec != 9 {
			t.Fatalf("published rate = %v, want 9", cfg.Notify.RatePerSec)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published after rewrite")
	}

	cancel()
	<-done
}

func TestWatchKeepsOldConfigOnBadRewrite(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "bot.yaml", sampleYAML)
	m := NewManager(path, logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	old := m.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("telegram: [broken\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	// Wait past the debounce window, then confirm nothing was committed.
	time.Sleep(600 * time.Millisecond)
	if m.Get() != old {
		t.Fatal("broken rewrite must not replace the committed config")
	}
}
