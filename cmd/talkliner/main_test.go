package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rexliu/talkliner/pkg/audio"
	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/config"
	"github.com/rexliu/talkliner/pkg/ipc"
	"github.com/rexliu/talkliner/pkg/journal"
	"github.com/rexliu/talkliner/pkg/messenger"
)

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

// startDaemon initializes a profile and serves its socket in-process.
func startDaemon(t *testing.T) (string, *journal.Store) {
	t.Helper()
	profile := t.TempDir()
	var out bytes.Buffer
	if err := runCommand("init", []string{"-profile", profile, "-name", "test"}, nil, &out); err != nil {
		t.Fatalf("init: %v", err)
	}

	reg := channel.NewRegistry()
	audio.Register(reg)
	m := messenger.New()
	m.SetMethodCallHandler(audio.ChannelName, channel.NewDispatcher(reg))

	store, err := journal.Open(filepath.Join(profile, "journal.db"))
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("journal init: %v", err)
	}
	m.Observe(store.Observer(nil))

	ctx, cancel := context.WithCancel(context.Background())
	srv := ipc.NewServer(m, discardLogger{})
	if err := srv.Start(ctx, filepath.Join(profile, "ipc.sock")); err != nil {
		cancel()
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Stop()
		store.Close()
	})
	return profile, store
}

func TestInitRefusesOverwrite(t *testing.T) {
	profile := t.TempDir()
	var out bytes.Buffer
	if err := runCommand("init", []string{"-profile", profile}, nil, &out); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := runCommand("init", []string{"-profile", profile}, nil, &out); err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if err := runCommand("init", []string{"-profile", profile, "-force"}, nil, &out); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}

func TestCallAndHistory(t *testing.T) {
	profile, _ := startDaemon(t)

	var out bytes.Buffer
	if err := runCommand("devices", []string{"-profile", profile}, nil, &out); err != nil {
		t.Fatalf("devices: %v", err)
	}
	if strings.TrimSpace(out.String()) != `"Momin Khan"` {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	stdin := strings.NewReader(`{"kind":"input"}`)
	if err := runCommand("call", []string{"-profile", profile, "-method", audio.MethodGetAudioDevices, "-args", "-"}, stdin, &out); err != nil {
		t.Fatalf("call: %v", err)
	}

	err := runCommand("call", []string{"-profile", profile, "-method", "unknownMethod", "-args", "{}"}, nil, &out)
	if err == nil || !strings.Contains(err.Error(), channel.CodeNotImplemented) {
		t.Fatalf("expected not_implemented error, got %v", err)
	}

	out.Reset()
	if err := runCommand("history", []string{"-profile", profile, "-limit", "10"}, nil, &out); err != nil {
		t.Fatalf("history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 history lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], "unknownMethod") || !strings.Contains(lines[0], channel.CodeNotImplemented) {
		t.Fatalf("unexpected newest line %q", lines[0])
	}
}

func TestCallValidatesArguments(t *testing.T) {
	var out bytes.Buffer
	if err := runCommand("call", []string{"-socket", "/nonexistent.sock"}, nil, &out); err == nil {
		t.Fatal("expected missing method error")
	}
	if err := runCommand("call", []string{"-socket", "/nonexistent.sock", "-method", "m", "-args", "{"}, nil, &out); err == nil {
		t.Fatal("expected invalid JSON error")
	}
}

func TestDiagAndChannels(t *testing.T) {
	profile := t.TempDir()
	var out bytes.Buffer
	if err := runCommand("init", []string{"-profile", profile, "-name", "diag"}, nil, &out); err != nil {
		t.Fatalf("init: %v", err)
	}
	out.Reset()
	if err := runCommand("diag", []string{"-profile", profile}, nil, &out); err != nil {
		t.Fatalf("diag: %v", err)
	}
	if !strings.Contains(out.String(), "Profile: diag") || !strings.Contains(out.String(), "ipc.sock") {
		t.Fatalf("unexpected diag output %q", out.String())
	}

	if err := runCommand("channels", []string{"-profile", profile}, nil, &out); err == nil {
		t.Fatal("expected missing manifest error")
	}
	manifest := `{"channels":{"audio_devices_channel":["getAudioDevices"]}}`
	if err := os.WriteFile(filepath.Join(profile, config.ManifestFileName), []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	out.Reset()
	if err := runCommand("channels", []string{"-profile", profile}, nil, &out); err != nil {
		t.Fatalf("channels: %v", err)
	}
	if !strings.Contains(out.String(), audio.MethodGetAudioDevices) {
		t.Fatalf("unexpected channels output %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := runCommand("frobnicate", nil, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error")
	}
}
