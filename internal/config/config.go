package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// MaxMessageBytes caps a single inbound websocket frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// RoomCapacity is the number of members a canvas admits.
	RoomCapacity int `mapstructure:"room_capacity" yaml:"room_capacity"`
	// ClientBuffer is the per-connection outbound event buffer.
	ClientBuffer int `mapstructure:"client_buffer" yaml:"client_buffer"`
	// MaxMessagesPerMinute limits inbound frames per connection; 0 disables the limit.
	MaxMessagesPerMinute int `mapstructure:"max_messages_per_minute" yaml:"max_messages_per_minute"`

	AssetChunksPerYield int           `mapstructure:"asset_chunks_per_yield" yaml:"asset_chunks_per_yield"`
	AssetYieldDelay     time.Duration `mapstructure:"asset_yield_delay" yaml:"asset_yield_delay"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		LogLevel:             "info",
		MaxMessageBytes:      16 << 20,
		RoomCapacity:         10,
		ClientBuffer:         256,
		MaxMessagesPerMinute: 0,
		AssetChunksPerYield:  8,
		AssetYieldDelay:      5 * time.Millisecond,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RoomCapacity != 0 {
		c.RoomCapacity = other.RoomCapacity
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if other.MaxMessagesPerMinute != 0 {
		c.MaxMessagesPerMinute = other.MaxMessagesPerMinute
	}
	if other.AssetChunksPerYield != 0 {
		c.AssetChunksPerYield = other.AssetChunksPerYield
	}
	if other.AssetYieldDelay != 0 {
		c.AssetYieldDelay = other.AssetYieldDelay
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate rejects values the relay can't run with.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	case c.RoomCapacity < 1:
		return fmt.Errorf("%w: room_capacity must be positive", ErrInvalidConfig)
	case c.MaxMessageBytes < 0:
		return fmt.Errorf("%w: max_message_bytes must not be negative", ErrInvalidConfig)
	case c.MaxMessagesPerMinute < 0:
		return fmt.Errorf("%w: max_messages_per_minute must not be negative", ErrInvalidConfig)
	}
	return nil
}
