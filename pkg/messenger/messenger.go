// Package messenger connects named method channels to their dispatchers.
// Transports (ipc, web) deliver calls through a single Messenger.
package messenger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rexliu/talkliner/pkg/channel"
)

// Event describes one completed invocation.
type Event struct {
	TraceID  string        `json:"traceId"`
	Channel  string        `json:"channel"`
	Method   string        `json:"method"`
	OK       bool          `json:"ok"`
	Code     string        `json:"code,omitempty"`
	Duration time.Duration `json:"durationNs"`
	At       time.Time     `json:"at"`
}

// Observer is notified after every invocation. It must not block for long;
// it runs on the caller's goroutine.
type Observer func(Event)

// Messenger owns the channel table.
type Messenger struct {
	mu        sync.RWMutex
	channels  map[string]*channel.Dispatcher
	observers []Observer
}

// New constructs an empty messenger.
func New() *Messenger {
	return &Messenger{channels: make(map[string]*channel.Dispatcher)}
}

// SetMethodCallHandler installs d as the handler for name. A nil dispatcher
// removes the channel.
func (m *Messenger) SetMethodCallHandler(name string, d *channel.Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d == nil {
		delete(m.channels, name)
		return
	}
	m.channels[name] = d
}

// Observe registers an observer.
func (m *Messenger) Observe(o Observer) {
	if o == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Channels returns the installed channel names in sorted order.
func (m *Messenger) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Methods returns the methods answered on a channel, or nil if the channel
// is not installed.
func (m *Messenger) Methods(name string) []string {
	m.mu.RLock()
	d := m.channels[name]
	m.mu.RUnlock()
	if d == nil {
		return nil
	}
	return d.Methods()
}

// Invoke delivers call to the named channel and returns its result.
func (m *Messenger) Invoke(ctx context.Context, name string, call channel.Call) (channel.Result, Event) {
	start := time.Now()
	m.mu.RLock()
	d := m.channels[name]
	observers := m.observers
	m.mu.RUnlock()

	var res channel.Result
	if d == nil {
		res = channel.Failure(channel.CodeNotImplemented, "No handler registered for channel "+name, nil)
	} else {
		res = d.Dispatch(ctx, call)
	}

	ev := Event{
		TraceID:  uuid.NewString(),
		Channel:  name,
		Method:   call.Method,
		OK:       res.OK,
		Code:     res.Code(),
		Duration: time.Since(start),
		At:       start,
	}
	for _, o := range observers {
		o(ev)
	}
	return res, ev
}
