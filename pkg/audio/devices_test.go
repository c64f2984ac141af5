package audio

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rexliu/talkliner/pkg/channel"
)

func TestGetAudioDevicesIgnoresArguments(t *testing.T) {
	reg := channel.NewRegistry()
	Register(reg)
	d := channel.NewDispatcher(reg)

	cases := map[string]json.RawMessage{
		"absent": nil,
		"null":   json.RawMessage(`null`),
		"object": json.RawMessage(`{"kind":"input"}`),
		"array":  json.RawMessage(`[1,2,3]`),
		"string": json.RawMessage(`"speakers"`),
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				res := d.Dispatch(context.Background(), channel.Call{Method: MethodGetAudioDevices, Arguments: args})
				if !res.OK {
					t.Fatalf("expected success, got %+v", res.Err)
				}
				if res.Value != "Momin Khan" {
					t.Fatalf("expected placeholder, got %v", res.Value)
				}
			}
		})
	}
}

func TestUnknownMethodOnAudioChannel(t *testing.T) {
	reg := channel.NewRegistry()
	Register(reg)
	res := channel.NewDispatcher(reg).Dispatch(context.Background(), channel.Call{
		Method:    "unknownMethod",
		Arguments: json.RawMessage(`{}`),
	})
	if res.Code() != channel.CodeNotImplemented {
		t.Fatalf("expected not_implemented, got %+v", res)
	}
	if res.Err.Message != "No handler registered for unknownMethod" {
		t.Fatalf("unexpected message %q", res.Err.Message)
	}
}
