package main

import (
	"github.com/rexliu/talkliner/pkg/audio"
	"github.com/rexliu/talkliner/pkg/channel"
	"github.com/rexliu/talkliner/pkg/messenger"
)

// installChannels builds each channel's registry once and hands the
// resulting dispatchers to the messenger.
func installChannels(m *messenger.Messenger) {
	audioRegistry := channel.NewRegistry()
	audio.Register(audioRegistry)
	m.SetMethodCallHandler(audio.ChannelName, channel.NewDispatcher(audioRegistry))
}
