package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rexliu/talkliner/pkg/audio"
	"github.com/rexliu/talkliner/pkg/config"
	"github.com/rexliu/talkliner/pkg/ipc"
	"github.com/rexliu/talkliner/pkg/journal"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}
	if err := runCommand(os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s error: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func runCommand(name string, args []string, stdin io.Reader, stdout io.Writer) error {
	switch name {
	case "init":
		return initCommand(args, stdout)
	case "version":
		fmt.Fprintf(stdout, "talkliner %s\n", version)
		return nil
	case "call":
		return callCommand(args, stdin, stdout)
	case "devices":
		return callCommand(append([]string{"-channel", audio.ChannelName, "-method", audio.MethodGetAudioDevices}, args...), stdin, stdout)
	case "channels":
		return channelsCommand(args, stdout)
	case "history":
		return historyCommand(args, stdout)
	case "watch":
		return watchCommand(args, stdout)
	case "diag":
		return diagCommand(args, stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown subcommand %q", name)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: talkliner <command> [options]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  init      Initialize a local profile (writes config.toml)")
	fmt.Fprintln(w, "  call      Invoke a channel method on the daemon")
	fmt.Fprintln(w, "  devices   Shortcut for call on audio_devices_channel/getAudioDevices")
	fmt.Fprintln(w, "  channels  List channels recorded in the daemon manifest")
	fmt.Fprintln(w, "  history   Show recent calls from the journal")
	fmt.Fprintln(w, "  watch     Stream call_dispatched events from the daemon")
	fmt.Fprintln(w, "  diag      Print profile configuration paths")
	fmt.Fprintln(w, "  version   Print CLI version")
}

func initCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	profilePath := fs.String("profile", "./_dev_profile", "Profile directory")
	name := fs.String("name", "dev", "Profile name")
	force := fs.Bool("force", false, "Overwrite existing config if present")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := os.MkdirAll(*profilePath, 0o700); err != nil {
		return err
	}
	configPath := filepath.Join(*profilePath, config.FileName)
	if _, err := os.Stat(configPath); err == nil && !*force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
	}
	cfg := config.DefaultProfile(*name)
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "initialized profile %s at %s\n", cfg.ProfileName, *profilePath)
	return nil
}

func callCommand(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	socket := fs.String("socket", "", "Override socket path")
	channelName := fs.String("channel", audio.ChannelName, "Channel name")
	method := fs.String("method", "", "Method name")
	inline := fs.String("args", "", "Inline JSON arguments ('-' reads stdin)")
	timeout := fs.Duration("timeout", 5*time.Second, "Call timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *method == "" {
		return fmt.Errorf("--method is required")
	}

	var payload json.RawMessage
	switch *inline {
	case "":
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		payload = json.RawMessage(strings.TrimSpace(string(data)))
	default:
		payload = json.RawMessage(*inline)
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return fmt.Errorf("arguments are not valid JSON")
	}

	socketPath, err := resolveSocketPath(*profile, *socket)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	resp, err := ipc.Call(ctx, socketPath, *channelName, *method, payload)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("daemon error: %s (%s)", resp.Error.Message, resp.Error.Code)
	}
	return printJSON(stdout, resp.Result)
}

func channelsCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("channels", flag.ContinueOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(*profile, config.ManifestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no manifest in %s (is talklinerd running?)", *profile)
		}
		return err
	}
	return printJSON(stdout, data)
}

func historyCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	limit := fs.Int("limit", 20, "Maximum entries (1-500)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadProfile(*profile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal disabled in profile %s", cfg.ProfileName)
	}
	store, err := journal.Open(config.ResolvePath(*profile, cfg.Journal.DBPath))
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		return err
	}
	entries, err := store.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		outcome := "ok"
		if !e.OK {
			outcome = e.Code
		}
		at := time.UnixMilli(e.CreatedAt).Format(time.RFC3339)
		fmt.Fprintf(stdout, "%s  %s/%s  %s  %dus\n", at, e.Channel, e.Method, outcome, e.DurationUS)
	}
	return nil
}

func watchCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	socket := fs.String("socket", "", "Override socket path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	socketPath, err := resolveSocketPath(*profile, *socket)
	if err != nil {
		return err
	}
	conn, err := ipc.Dial(context.Background(), socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	ack, err := ipc.RoundTrip(conn, ipc.Request{Method: ipc.MethodSubscribeEvents})
	if err != nil {
		return err
	}
	if ack.Error != nil {
		return fmt.Errorf("daemon error: %s (%s)", ack.Error.Message, ack.Error.Code)
	}
	fmt.Fprintln(stdout, "Subscribed to call_dispatched events (Ctrl+C to exit)")
	for {
		frame, err := ipc.ReadFrame(conn)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(frame))
	}
}

func diagCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("diag", flag.ContinueOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadProfile(*profile)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Profile: %s\n", cfg.ProfileName)
	fmt.Fprintf(stdout, "Config: %s\n", filepath.Join(*profile, config.FileName))
	fmt.Fprintf(stdout, "Socket: %s\n", config.ResolvePath(*profile, cfg.IPC.SocketPath))
	if cfg.Journal.Enabled {
		fmt.Fprintf(stdout, "Journal: %s\n", config.ResolvePath(*profile, cfg.Journal.DBPath))
	}
	if cfg.HTTP.Enabled {
		fmt.Fprintf(stdout, "HTTP: %s (static %s)\n", cfg.HTTP.Listen, config.ResolvePath(*profile, cfg.HTTP.StaticDir))
	}
	if cfg.Logging.FilePath != "" {
		fmt.Fprintf(stdout, "Log File: %s\n", config.ResolvePath(*profile, cfg.Logging.FilePath))
	}
	fmt.Fprintf(stdout, "Log Level: %s\n", cfg.Logging.Level)
	return nil
}

func printJSON(w io.Writer, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func resolveSocketPath(profile, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := config.LoadProfile(profile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config not found in %s (run 'talkliner init --profile %s')", profile, profile)
		}
		return "", fmt.Errorf("load config: %w", err)
	}
	return config.ResolvePath(profile, cfg.IPC.SocketPath), nil
}
