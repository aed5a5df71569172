package main

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// CommunitySpec is one upstream source to seed into the store, the
// operator-authored counterpart of core.Community.
type CommunitySpec struct {
	ExternalID int64  `yaml:"external_id"`
	ScreenName string `yaml:"screen_name"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
}

// RegionSpec is one region to seed, carrying its communities and digest
// template configuration inline.
type RegionSpec struct {
	Code          string          `yaml:"code"`
	Name          string          `yaml:"name"`
	Neighbors     []string        `yaml:"neighbors"`
	LocalHashtags []string        `yaml:"local_hashtags"`
	Keywords      []string        `yaml:"keywords"`
	Communities   []CommunitySpec `yaml:"communities"`
}

// CredentialSpec is one upstream access token to seed.
type CredentialSpec struct {
	Name   string `yaml:"name"`
	Secret string `yaml:"secret"`
}

// Config is the on-disk operator configuration document: connection
// settings plus the region/credential roster. A production deployment
// would instead manage these through the Store's own mutating
// operations (spec §6's operator surface); this file is the bootstrap
// path for a fresh install.
type Config struct {
	BaseURL              string `yaml:"base_url"`
	RedisAddr            string `yaml:"redis_addr"`
	MinScanIntervalMins  int    `yaml:"min_scan_interval_minutes"`
	MaxConcurrentScans   int    `yaml:"max_concurrent_scans"`
	EngagementWindowDays int    `yaml:"engagement_window_days"`
	QueueCapacity        int    `yaml:"queue_capacity"`
	WorkerCount          int    `yaml:"worker_count"`

	Regions     []RegionSpec     `yaml:"regions"`
	Credentials []CredentialSpec `yaml:"credentials"`
}

// defaultConfigPath resolves ~/.setka/config.yaml, following the
// operator-config convention of locating state under the user's home
// directory rather than the working directory.
func defaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".setka", "config.yaml"), nil
}

// loadConfig reads and parses the YAML document at path, filling in the
// spec's named defaults for anything left at its zero value.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.vk.com"
	}
	if c.MinScanIntervalMins <= 0 {
		c.MinScanIntervalMins = 60
	}
	if c.MaxConcurrentScans <= 0 {
		c.MaxConcurrentScans = 2
	}
	if c.EngagementWindowDays <= 0 {
		c.EngagementWindowDays = 90
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = c.MaxConcurrentScans
	}
}

