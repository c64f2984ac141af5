package ipc

import (
	"encoding/json"

	"github.com/rexliu/talkliner/pkg/channel"
)

// Request models a method call sent to the daemon.
type Request struct {
	ID        string          `json:"id,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Method    string          `json:"method" validate:"required"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Call returns the channel call carried by the request.
func (r Request) Call() channel.Call {
	return channel.Call{Method: r.Method, Arguments: r.Arguments}
}

// Response models the reply to a Request.
type Response struct {
	ID      string          `json:"id,omitempty"`
	OK      bool            `json:"ok"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *channel.Error  `json:"error,omitempty"`
	TraceID string          `json:"traceId,omitempty"`
}

// NewResponse encodes a channel result. A value that cannot be marshalled
// turns into an internal failure.
func NewResponse(id, traceID string, res channel.Result) Response {
	resp := Response{ID: id, TraceID: traceID}
	if !res.OK {
		resp.Error = res.Err
		if resp.Error == nil {
			resp.Error = channel.Errorf(channel.CodeInternal, "missing error", nil)
		}
		return resp
	}
	raw, err := json.Marshal(res.Value)
	if err != nil {
		resp.Error = channel.Errorf(channel.CodeInternal, err.Error(), nil)
		return resp
	}
	resp.OK = true
	resp.Result = raw
	return resp
}
