package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Dial connects to the daemon socket.
func Dial(ctx context.Context, socketPath string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return conn, nil
}

// RoundTrip writes req on conn and reads one Response.
func RoundTrip(conn net.Conn, req Request) (*Response, error) {
	if req.ID == "" {
		req.ID = fmt.Sprintf("cli-%d", time.Now().UnixNano())
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	respBytes, err := ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// Call sends a single method call to the daemon. Failures reported by the
// daemon are returned in the Response, not as an error.
func Call(ctx context.Context, socketPath, channelName, method string, args json.RawMessage) (*Response, error) {
	conn, err := Dial(ctx, socketPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return RoundTrip(conn, Request{Channel: channelName, Method: method, Arguments: args})
}
