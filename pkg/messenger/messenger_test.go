package messenger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rexliu/talkliner/pkg/audio"
	"github.com/rexliu/talkliner/pkg/channel"
)

func newAudioMessenger() *Messenger {
	reg := channel.NewRegistry()
	audio.Register(reg)
	m := New()
	m.SetMethodCallHandler(audio.ChannelName, channel.NewDispatcher(reg))
	return m
}

func TestInvokeRoutesToChannel(t *testing.T) {
	m := newAudioMessenger()
	res, ev := m.Invoke(context.Background(), audio.ChannelName, channel.Call{Method: audio.MethodGetAudioDevices, Arguments: json.RawMessage(`null`)})
	if !res.OK || res.Value != "Momin Khan" {
		t.Fatalf("unexpected result %+v", res)
	}
	if ev.TraceID == "" || ev.Channel != audio.ChannelName || !ev.OK || ev.Code != "" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestInvokeUnknownChannel(t *testing.T) {
	m := newAudioMessenger()
	res, ev := m.Invoke(context.Background(), "video_channel", channel.Call{Method: audio.MethodGetAudioDevices})
	if res.Code() != channel.CodeNotImplemented {
		t.Fatalf("expected not_implemented, got %+v", res)
	}
	if ev.OK || ev.Code != channel.CodeNotImplemented {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestObserversSeeEveryCall(t *testing.T) {
	m := newAudioMessenger()
	var seen []Event
	m.Observe(func(ev Event) { seen = append(seen, ev) })
	m.Observe(nil)

	m.Invoke(context.Background(), audio.ChannelName, channel.Call{Method: audio.MethodGetAudioDevices})
	m.Invoke(context.Background(), audio.ChannelName, channel.Call{Method: "unknownMethod"})
	if len(seen) != 2 {
		t.Fatalf("expected 2 events, got %d", len(seen))
	}
	if !seen[0].OK || seen[1].Code != channel.CodeNotImplemented || seen[1].Method != "unknownMethod" {
		t.Fatalf("unexpected events %+v", seen)
	}
}

func TestSetMethodCallHandlerReplaceAndRemove(t *testing.T) {
	m := newAudioMessenger()
	if got := m.Channels(); len(got) != 1 || got[0] != audio.ChannelName {
		t.Fatalf("unexpected channels %v", got)
	}
	if got := m.Methods(audio.ChannelName); len(got) != 1 || got[0] != audio.MethodGetAudioDevices {
		t.Fatalf("unexpected methods %v", got)
	}

	m.SetMethodCallHandler(audio.ChannelName, channel.NewDispatcher(nil))
	res, _ := m.Invoke(context.Background(), audio.ChannelName, channel.Call{Method: audio.MethodGetAudioDevices})
	if res.Code() != channel.CodeNotImplemented {
		t.Fatalf("replacement dispatcher not used: %+v", res)
	}

	m.SetMethodCallHandler(audio.ChannelName, nil)
	if got := m.Channels(); len(got) != 0 {
		t.Fatalf("expected no channels, got %v", got)
	}
	if m.Methods(audio.ChannelName) != nil {
		t.Fatal("expected nil methods for removed channel")
	}
}
