package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gardenzilla/cashregisterbridge/internal/bridge"
)

// config.toml key mapping to bridge runtime settings.
type fileConfig struct {
	ListenAddr         string   `toml:"listen_addr"`
	WebsocketPath      string   `toml:"websocket_path"`
	Subprotocol        string   `toml:"subprotocol"`
	AllowedOrigins     []string `toml:"allowed_origins"`
	MaxConnections     int      `toml:"max_connections"`
	ReadLimit          int64    `toml:"read_limit"`
	WriteTimeout       string   `toml:"write_timeout"`
	ShutdownTimeout    string   `toml:"shutdown_timeout"`
	HeartbeatInterval  string   `toml:"heartbeat_interval"`
	DevicePath         string   `toml:"device_path"`
	DeviceWriteTimeout string   `toml:"device_write_timeout"`
	ItemLabel          string   `toml:"item_label"`
	Footnote           []string `toml:"footnote"`
}

func loadServiceConfig(path string) (bridge.ServiceConfig, error) {
	cfg := bridge.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return bridge.ServiceConfig{}, fmt.Errorf("load bridge config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return bridge.ServiceConfig{}, fmt.Errorf("load bridge config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("websocket_path") {
		cfg.WebsocketPath = strings.TrimSpace(raw.WebsocketPath)
	}
	if meta.IsDefined("subprotocol") {
		cfg.Subprotocol = strings.TrimSpace(raw.Subprotocol)
	}
	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = normalizeList(raw.AllowedOrigins)
	}
	if meta.IsDefined("max_connections") {
		cfg.MaxConnections = raw.MaxConnections
	}
	if meta.IsDefined("read_limit") {
		cfg.ReadLimit = raw.ReadLimit
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{key: "write_timeout", raw: raw.WriteTimeout, target: &cfg.WriteTimeout},
		{key: "shutdown_timeout", raw: raw.ShutdownTimeout, target: &cfg.ShutdownTimeout},
		{key: "heartbeat_interval", raw: raw.HeartbeatInterval, target: &cfg.HeartbeatInterval},
		{key: "device_write_timeout", raw: raw.DeviceWriteTimeout, target: &cfg.Device.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return bridge.ServiceConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.target = v
	}

	if meta.IsDefined("device_path") {
		cfg.Device.Path = strings.TrimSpace(raw.DevicePath)
	}
	if meta.IsDefined("item_label") {
		cfg.Receipt.ItemLabel = strings.TrimSpace(raw.ItemLabel)
	}
	if meta.IsDefined("footnote") {
		// footnote lines are printed verbatim, including blanks
		cfg.Receipt.Footnote = append([]string{}, raw.Footnote...)
	}

	return cfg, nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
