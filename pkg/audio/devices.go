// Package audio installs the audio_devices_channel methods.
package audio

import (
	"context"
	"encoding/json"

	"github.com/rexliu/talkliner/pkg/channel"
)

const (
	// ChannelName is the method channel the UI uses for audio queries.
	ChannelName = "audio_devices_channel"
	// MethodGetAudioDevices returns the available audio devices.
	MethodGetAudioDevices = "getAudioDevices"
)

// placeholderDevices is returned until real endpoint enumeration exists.
const placeholderDevices = "Momin Khan"

// Register installs the audio channel handlers on reg.
func Register(reg *channel.Registry) {
	reg.Register(MethodGetAudioDevices, getAudioDevices)
}

func getAudioDevices(ctx context.Context, args json.RawMessage) (any, *channel.Error) {
	_ = ctx
	_ = args
	return placeholderDevices, nil
}
