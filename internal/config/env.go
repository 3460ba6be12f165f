package config

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config contains all configuration parameters for the device.
// Geometry values are fixed at manufacture time in real hardware; changing
// them against an existing data directory is refused at open.
type Config struct {
	DataDir     string `envconfig:"BITFLOPPY_DATA_DIR" default:"bitfloppy-data"`
	FlashSize   int64  `envconfig:"BITFLOPPY_FLASH_SIZE" default:"4194304"`
	BlockSize   int64  `envconfig:"BITFLOPPY_BLOCK_SIZE" default:"4096"`
	EntropyBits int    `envconfig:"BITFLOPPY_ENTROPY_BITS" default:"128"`
	Vendor      string `envconfig:"BITFLOPPY_VENDOR" default:"ESP32"`
	Product     string `envconfig:"BITFLOPPY_PRODUCT" default:"BITFLOPPY"`
	Revision    string `envconfig:"BITFLOPPY_REVISION" default:"1.0"`
	LogLevel    string `envconfig:"BITFLOPPY_LOG_LEVEL" default:"info"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	cfg = &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetDataDir returns the device data directory from configuration
func GetDataDir() string {
	return Get().DataDir
}

// GetRecordDir returns the path of the record partition
func GetRecordDir() string {
	return filepath.Join(Get().DataDir, "record")
}

// GetFlashImagePath returns the path of the flash partition image
func GetFlashImagePath() string {
	return filepath.Join(Get().DataDir, "flash.img")
}

// GetFlashSize returns the flash partition capacity in bytes
func GetFlashSize() int64 {
	return Get().FlashSize
}

// GetBlockSize returns the logical block size in bytes
func GetBlockSize() int64 {
	return Get().BlockSize
}

// GetEntropyBits returns the entropy size used for generated mnemonics
func GetEntropyBits() int {
	return Get().EntropyBits
}

// GetVendor returns the vendor string reported over USB
func GetVendor() string {
	return Get().Vendor
}

// GetProduct returns the product string reported over USB
func GetProduct() string {
	return Get().Product
}

// GetRevision returns the revision string reported over USB
func GetRevision() string {
	return Get().Revision
}

// GetLogLevel returns the configured log level name
func GetLogLevel() string {
	return Get().LogLevel
}
