package bridge

import (
	"net/http"
	"time"
)

// Config configures a Hub.
type Config struct {
	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// ReadTimeout is the maximum time between messages or pongs from a
	// renderer. Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between pings. It must be shorter than
	// ReadTimeout. Default: 30 seconds.
	HeartbeatInterval time.Duration

	// SendBuffer is the number of frames queued per renderer. A renderer
	// whose queue is full is disconnected. At least 2. Default: 64.
	SendBuffer int

	// MaxMessageSize is the largest message accepted from a renderer.
	// Default: 64KB.
	MaxMessageSize int64

	// CheckOrigin validates the Origin header of upgrade requests.
	// If nil, only same-origin requests are accepted.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		SendBuffer:        64,
		MaxMessageSize:    64 * 1024,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = def.WriteBufferSize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.SendBuffer < 2 {
		c.SendBuffer = def.SendBuffer
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	return c
}
