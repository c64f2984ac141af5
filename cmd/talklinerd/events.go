package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/ipc"
	"github.com/rexliu/talkliner/pkg/messenger"
)

// eventHub broadcasts call_dispatched events to subscribed ipc clients.
type eventHub struct {
	logger  ipc.Logger
	mu      sync.Mutex
	clients map[*eventClient]struct{}
}

type eventClient struct {
	send chan []byte
}

type dispatchedEvent struct {
	Type  string          `json:"type"`
	Event messenger.Event `json:"event"`
}

func newEventHub(logger ipc.Logger) *eventHub {
	return &eventHub{
		logger:  logger,
		clients: make(map[*eventClient]struct{}),
	}
}

func (h *eventHub) register() *eventClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	client := &eventClient{send: make(chan []byte, 16)}
	h.clients[client] = struct{}{}
	return client
}

func (h *eventHub) unregister(client *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// observe is installed as a messenger observer.
func (h *eventHub) observe(ev messenger.Event) {
	h.broadcast(dispatchedEvent{Type: "call_dispatched", Event: ev})
}

func (h *eventHub) broadcast(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("event marshal error: %v", err)
		}
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			if h.logger != nil {
				h.logger.Printf("dropping event for slow client")
			}
		}
	}
}

// subscribe is the ipc stream for ipc.MethodSubscribeEvents.
func (h *eventHub) subscribe(ctx context.Context) (<-chan []byte, *channel.Error) {
	client := h.register()
	go func() {
		<-ctx.Done()
		h.unregister(client)
	}()
	return client.send, nil
}
