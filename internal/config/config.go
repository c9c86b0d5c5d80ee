// Package config provides the configuration structure for the narration-service.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Storage backend modes.
const (
	StorageModeNats = "nats"
	StorageModeZone = "zone"
)

var (
	// ErrInvalidStorageMode indicates an unrecognized storage.mode value.
	ErrInvalidStorageMode = errors.New("storage mode must be 'nats' or 'zone'")
	// ErrZoneBaseURLEmpty indicates zone storage without an endpoint.
	ErrZoneBaseURLEmpty = errors.New("zone storage requires a base url")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                     string `toml:"url"`
	NarrationRequestSubject string `toml:"narration_request_subject"`
	ManifestRequestSubject  string `toml:"manifest_request_subject"`
	HotCacheBucket          string `toml:"hot_cache_bucket"`
	HotCacheTTLSeconds      int    `toml:"hot_cache_ttl_seconds"`
	AudioObjectStoreBucket  string `toml:"audio_object_store_bucket"`
}

// SynthesisConfig holds the upstream text-to-speech settings.
type SynthesisConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Provider       string  `toml:"provider"`
	DefaultVoice   string  `toml:"default_voice"`
	DefaultModel   string  `toml:"default_model"`
	DefaultSpeed   float64 `toml:"default_speed"`
}

// StorageConfig selects and configures the durable audio tier. Mode is
// either "nats" (a JetStream object store bucket) or "zone" (an HTTP
// storage zone).
type StorageConfig struct {
	Mode              string `toml:"mode"`
	ZoneBaseURL       string `toml:"zone_base_url"`
	ZonePublicBaseURL string `toml:"zone_public_base_url"`
	ZoneName          string `toml:"zone_name"`
	ZoneAccessKey     string `toml:"zone_access_key"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// CacheConfig holds the hot-tier settings.
type CacheConfig struct {
	HotEnabled         bool `toml:"hot_enabled"`
	HotMaxPayloadBytes int  `toml:"hot_max_payload_bytes"`
}

// DatabaseConfig holds the clip metadata database settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS      NATSConfig      `toml:"nats"`
	Synthesis SynthesisConfig `toml:"synthesis"`
	Storage   StorageConfig   `toml:"storage"`
	Cache     CacheConfig     `toml:"cache"`
	Database  DatabaseConfig  `toml:"database"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the configuration for the narration-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	validationErr := cfg.validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Mode {
	case StorageModeNats, StorageModeZone:
	default:
		return fmt.Errorf("unknown storage mode '%s': %w", c.Storage.Mode, ErrInvalidStorageMode)
	}

	if c.Storage.Mode == StorageModeZone && c.Storage.ZoneBaseURL == "" {
		return ErrZoneBaseURLEmpty
	}

	return nil
}
