package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rexliu/talkliner/pkg/config"
	"github.com/rexliu/talkliner/pkg/messenger"
)

type manifest struct {
	Channels map[string][]string `json:"channels"`
}

func writeManifest(profileDir string, m *messenger.Messenger) error {
	out := manifest{Channels: make(map[string][]string)}
	for _, name := range m.Channels() {
		out.Channels[name] = m.Methods(name)
	}
	file, err := os.Create(filepath.Join(profileDir, config.ManifestFileName))
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
