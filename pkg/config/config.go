// Package config loads the device's runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the counting parameters. Field names follow the knobs the
// device exposes to operators.
type Config struct {
	// BLEScanTime is the scan cycle in seconds; the scan window is twice
	// this value.
	BLEScanTime int `yaml:"blescantime"`

	// MACFilter drops sightings with randomized address types.
	MACFilter bool `yaml:"macfilter"`

	// ENSCount additionally counts devices advertising the Exposure
	// Notification Service.
	ENSCount bool `yaml:"enscount"`

	// RSSILimit is the minimum accepted signal strength in dBm, 0 disables.
	RSSILimit int `yaml:"rssilimit"`

	// SendCycle is the counting cycle in seconds; counters are flushed and
	// reset at this pace.
	SendCycle int `yaml:"sendcycle"`

	// Database is the path of the sqlite cycle store.
	Database string `yaml:"db"`

	// Device is the HCI device index, -1 for the first available.
	Device int `yaml:"device"`
}

func Default() Config {
	return Config{
		BLEScanTime: 15,
		MACFilter:   false,
		ENSCount:    false,
		RSSILimit:   0,
		SendCycle:   60,
		Database:    "paxscan.db",
		Device:      -1,
	}
}

// Load reads a YAML file over the defaults. A missing path returns the
// defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return c, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.BLEScanTime < 1 {
		return fmt.Errorf("blescantime must be at least 1s, got %d", c.BLEScanTime)
	}
	if c.SendCycle < 1 {
		return fmt.Errorf("sendcycle must be at least 1s, got %d", c.SendCycle)
	}
	if c.RSSILimit > 0 {
		return fmt.Errorf("rssilimit is in dBm and must be negative or 0, got %d", c.RSSILimit)
	}
	return nil
}

// ScanWindow is the duration of one bounded scan session.
func (c Config) ScanWindow() time.Duration {
	return time.Duration(c.BLEScanTime) * 2 * time.Second
}

// SendInterval is the pace at which counters are flushed and reset.
func (c Config) SendInterval() time.Duration {
	return time.Duration(c.SendCycle) * time.Second
}
