package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Config represents the application configuration.
type Config struct {
	ListenAddr     string `hcl:"listen_addr,optional"`
	DataDir        string `hcl:"data_dir,optional"`
	UploadDir      string `hcl:"upload_dir,optional"`
	OutputDir      string `hcl:"output_dir,optional"`
	PreviewLimit   int    `hcl:"preview_limit,optional"`
	ConnectTimeout string `hcl:"connect_timeout,optional"`
	SessionTTL     string `hcl:"session_ttl,optional"`
	ArtifactTTL    string `hcl:"artifact_ttl,optional"`
	MaxUploadMB    int    `hcl:"max_upload_mb,optional"`
	SecretBackend  string `hcl:"secret_backend,optional"`
}

// DefaultConfig returns the default configuration. Directories live under
// ~/.local/share/databridge.
func DefaultConfig() *Config {
	base := filepath.Join(".", ".databridge")
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".local", "share", "databridge")
	}
	return &Config{
		ListenAddr:     "127.0.0.1:8080",
		DataDir:        base,
		UploadDir:      filepath.Join(base, "uploads"),
		OutputDir:      filepath.Join(base, "exports"),
		PreviewLimit:   20,
		ConnectTimeout: "5s",
		SessionTTL:     "30m",
		ArtifactTTL:    "168h",
		MaxUploadMB:    10,
		SecretBackend:  "env",
	}
}

// Load reads the configuration from the given HCL file. Attributes missing
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file: %s", diags.Error())
	}

	cfg := DefaultConfig()
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set, otherwise returns the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Export writes the configuration to the specified file in HCL format.
func Export(path string, cfg *Config) error {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	root.SetAttributeValue("listen_addr", cty.StringVal(cfg.ListenAddr))
	root.SetAttributeValue("data_dir", cty.StringVal(cfg.DataDir))
	root.SetAttributeValue("upload_dir", cty.StringVal(cfg.UploadDir))
	root.SetAttributeValue("output_dir", cty.StringVal(cfg.OutputDir))
	root.SetAttributeValue("preview_limit", cty.NumberIntVal(int64(cfg.PreviewLimit)))
	root.SetAttributeValue("connect_timeout", cty.StringVal(cfg.ConnectTimeout))
	root.SetAttributeValue("session_ttl", cty.StringVal(cfg.SessionTTL))
	root.SetAttributeValue("artifact_ttl", cty.StringVal(cfg.ArtifactTTL))
	root.SetAttributeValue("max_upload_mb", cty.NumberIntVal(int64(cfg.MaxUploadMB)))
	root.SetAttributeValue("secret_backend", cty.StringVal(cfg.SecretBackend))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(f.Bytes())
	if err != nil {
		return fmt.Errorf("failed to write config to file: %w", err)
	}

	return nil
}

// Validate checks value ranges and duration syntax.
func (c *Config) Validate() error {
	var errs []error
	if c.PreviewLimit <= 0 {
		errs = append(errs, fmt.Errorf("preview_limit must be positive, got %d", c.PreviewLimit))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB))
	}
	if _, err := time.ParseDuration(c.ConnectTimeout); err != nil {
		errs = append(errs, fmt.Errorf("connect_timeout: %w", err))
	}
	if _, err := time.ParseDuration(c.SessionTTL); err != nil {
		errs = append(errs, fmt.Errorf("session_ttl: %w", err))
	}
	if d, err := time.ParseDuration(c.ArtifactTTL); err != nil {
		errs = append(errs, fmt.Errorf("artifact_ttl: %w", err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("artifact_ttl must not be negative, got %s", c.ArtifactTTL))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	return errors.Join(errs...)
}

// ConnectTimeoutDuration returns connect_timeout, falling back to 5s.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ConnectTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// SessionTTLDuration returns session_ttl, falling back to 30m.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ArtifactTTLDuration returns artifact_ttl. Zero keeps artifacts forever.
func (c *Config) ArtifactTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.ArtifactTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// MaxUploadBytes is max_upload_mb in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// DBPath is the SQLite file holding saved connections, jobs and artifacts.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "databridge.db")
}
