package bridge

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gardenzilla/cashregisterbridge/internal/device"
	"github.com/gardenzilla/cashregisterbridge/internal/fiscat"
)

const (
	DefaultListenAddr  = "127.0.0.1:2796"
	DefaultSubprotocol = "cashregisterbridge"
)

var (
	ErrInvalidListenAddr        = errors.New("bridge: invalid listen address")
	ErrInvalidSubprotocol       = errors.New("bridge: invalid subprotocol")
	ErrInvalidDevicePath        = errors.New("bridge: invalid device path")
	ErrInvalidHeartbeatInterval = errors.New("bridge: invalid heartbeat interval")
	ErrInvalidOrigin            = errors.New("bridge: invalid allowed origin")
)

// DeviceConfig points the bridge at the register's serial line.
type DeviceConfig struct {
	Path         string
	WriteTimeout time.Duration
}

// ReceiptConfig holds the receipt text the client may leave out.
type ReceiptConfig struct {
	ItemLabel string
	// Footnote is used for commands without a footnote key. nil selects
	// the built-in footer.
	Footnote []string
}

// ServiceConfig configures the bridge process.
type ServiceConfig struct {
	ListenAddr        string
	WebsocketPath     string
	Subprotocol       string
	AllowedOrigins    []string
	MaxConnections    int
	ReadLimit         int64
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	HeartbeatInterval time.Duration
	Device            DeviceConfig
	Receipt           ReceiptConfig
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:        DefaultListenAddr,
		WebsocketPath:     "/",
		Subprotocol:       DefaultSubprotocol,
		AllowedOrigins:    nil,
		MaxConnections:    0,
		ReadLimit:         64 << 10,
		WriteTimeout:      5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		Device: DeviceConfig{
			Path:         device.DefaultPath,
			WriteTimeout: 5 * time.Second,
		},
		Receipt: ReceiptConfig{
			ItemLabel: fiscat.DefaultItemLabel,
		},
	}
}

// Validate reports the first unusable setting.
func (c ServiceConfig) Validate() error {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(c.ListenAddr)); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidListenAddr, c.ListenAddr, err)
	}
	if strings.TrimSpace(c.Subprotocol) == "" {
		return ErrInvalidSubprotocol
	}
	if strings.TrimSpace(c.Device.Path) == "" {
		return ErrInvalidDevicePath
	}
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	for _, origin := range c.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
		}
	}
	return nil
}

func (c ServiceConfig) websocketPath() string {
	path := strings.TrimSpace(c.WebsocketPath)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}
