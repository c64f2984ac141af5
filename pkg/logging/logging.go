package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rexliu/talkliner/pkg/config"
)

// Logger wraps slog with the Printf surface the ipc and journal packages use.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	out   *swapWriter
	file  *rollingFile
}

// New returns a text logger writing to stdout with a component attribute.
func New(component string) *Logger {
	return NewWithWriter(component, os.Stdout)
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(component string, w io.Writer) *Logger {
	level := new(slog.LevelVar)
	out := &swapWriter{w: w}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger: slog.New(handler).With(slog.String("component", component)),
		level:  level,
		out:    out,
	}
}

// Printf logs a formatted message at info level.
func (l *Logger) Printf(format string, v ...any) {
	l.Info(fmt.Sprintf(format, v...))
}

// Println logs its operands at info level.
func (l *Logger) Println(v ...any) {
	l.Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Configure applies logging settings from config. filePath is resolved by
// the caller.
func (l *Logger) Configure(cfg config.LoggingConfig) error {
	if l == nil || l.Logger == nil {
		return nil
	}
	if cfg.Level != "" {
		level, err := ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		l.level.Set(level)
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o700); err != nil {
			return err
		}
		writer, err := newRollingFile(cfg.FilePath, cfg.FileMaxSize)
		if err != nil {
			return err
		}
		l.out.set(io.MultiWriter(os.Stdout, writer))
		if l.file != nil {
			l.file.Close()
		}
		l.file = writer
	}
	return nil
}

// Close releases the log file opened by Configure, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.out.set(os.Stdout)
	err := l.file.Close()
	l.file = nil
	return err
}

// ParseLevel maps config level names to slog levels.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

type rollingFile struct {
	mu   sync.Mutex
	path string
	max  int
	file *os.File
}

func newRollingFile(path string, maxMB int) (*rollingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &rollingFile{path: path, max: maxMB, file: f}, nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 {
		if info, err := r.file.Stat(); err == nil && info.Size()+int64(len(p)) > int64(r.max)*1024*1024 {
			if err := r.rotate(); err != nil {
				return 0, err
			}
		}
	}
	return r.file.Write(p)
}

// rotate moves the current file to path.1 and reopens path. The file is
// reopened even when the rename fails so later writes still land somewhere.
func (r *rollingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close log: %w", err)
	}
	renameErr := os.Rename(r.path, r.path+".1")
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	r.file = f
	if renameErr != nil {
		return fmt.Errorf("rotate log: %w", renameErr)
	}
	return nil
}

func (r *rollingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
