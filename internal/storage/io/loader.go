package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/tierd/internal/aptly"
	"github.com/slok/tierd/internal/model"
)

// DaemonConfigYAMLRepository loads the daemon configuration from YAML files.
type DaemonConfigYAMLRepository struct {
	fs fs.FS
}

// NewDaemonConfigYAMLRepository creates a new YAML daemon config repository.
func NewDaemonConfigYAMLRepository(filesystem fs.FS) *DaemonConfigYAMLRepository {
	return &DaemonConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads and validates the daemon configuration, unset fields are zero.
func (r *DaemonConfigYAMLRepository) GetConfig(ctx context.Context, path string) (DaemonConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return DaemonConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return DaemonConfig{}, ctx.Err()
	}

	var cfg DaemonConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DaemonConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return DaemonConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DaemonConfig represents the YAML structure of the daemon configuration.
type DaemonConfig struct {
	Listen    string          `yaml:"listen"`
	Workers   int             `yaml:"workers"`
	StopGrace time.Duration   `yaml:"stop_grace"`
	Aptly     AptlyConfig     `yaml:"aptly"`
	LiveRepo  *LiveRepoConfig `yaml:"live_repo,omitempty"`
}

// AptlyConfig represents the YAML structure of the aptly settings.
type AptlyConfig struct {
	// Binary is the aptly binary, an empty one uses an already running aptly on URL.
	Binary          string           `yaml:"binary"`
	URL             string           `yaml:"url"`
	Listen          string           `yaml:"listen"`
	RepoPrefix      string           `yaml:"repo_prefix"`
	PublishEndpoint string           `yaml:"publish_endpoint"`
	Architectures   []model.Arch     `yaml:"architectures"`
	Signing         aptly.Signing    `yaml:"signing"`
	S3              aptly.S3Endpoint `yaml:"s3"`
}

// LiveRepoConfig represents the YAML structure of the live repository assets settings.
type LiveRepoConfig struct {
	PublicKeyPath string `yaml:"public_key_path"`
	IndexPagePath string `yaml:"index_page_path"`
}

func (c DaemonConfig) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers can't be negative, got: %d", c.Workers)
	}

	if c.StopGrace < 0 {
		return fmt.Errorf("stop_grace can't be negative, got: %s", c.StopGrace)
	}

	if err := c.Aptly.validate(); err != nil {
		return fmt.Errorf("aptly: %w", err)
	}

	if c.LiveRepo != nil {
		if c.LiveRepo.PublicKeyPath == "" {
			return fmt.Errorf("live_repo: public_key_path is required")
		}
		if c.Aptly.S3.Bucket == "" {
			return fmt.Errorf("live_repo: requires the aptly s3 bucket")
		}
	}

	return nil
}

func (c AptlyConfig) validate() error {
	if c.Binary != "" && c.URL != "" {
		return fmt.Errorf("binary and url are exclusive")
	}

	for _, a := range c.Architectures {
		if !a.Valid() {
			return fmt.Errorf("architecture %q is not supported", a)
		}
	}

	s3 := c.S3
	if s3 != (aptly.S3Endpoint{}) && (s3.Bucket == "" || s3.Region == "") {
		return fmt.Errorf("s3 bucket and region are required")
	}

	if !c.Signing.Skip && c.Signing.GpgKey == "" && c.Binary != "" {
		return fmt.Errorf("signing gpg_key is required unless signing is skipped")
	}

	return nil
}
