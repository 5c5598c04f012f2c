// Package config implements cratespec's CLI configuration file loading:
// a TOML document resolved against CLI flags with precedence CLI > file >
// error (spec.md §6).
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// RemoteSigning configures the network-mode (remote-PKI) signing variant.
// Left nil/zero when the local adapter is used.
type RemoteSigning struct {
	DiscoveryURL string `toml:"discovery_url"`
	GRPCTarget   string `toml:"grpc_target"`
	Insecure     bool   `toml:"insecure"`
	BearerToken  string `toml:"bearer_token"`
	KeyPairCache string `toml:"keypair_cache"`
	Algo         string `toml:"algo"`
	KMS          string `toml:"kms"`
	Flow         string `toml:"flow"`
}

// Config is the full set of encode/decode parameters the front end can
// source from a TOML file (spec.md §6's "Configuration" paragraph).
// CertPath, KeyPath, RootsPath, OutputDir and SigType can each be overridden
// by a CLI flag; MetricsAddr and Remote are read from the file only.
type Config struct {
	CertPath    string         `toml:"cert_path"`
	KeyPath     string         `toml:"key_path"`
	RootsPath   string         `toml:"roots_path"`
	OutputDir   string         `toml:"output_dir"`
	SigType     string         `toml:"sig_type"`
	MetricsAddr string         `toml:"metrics_addr"`
	Remote      *RemoteSigning `toml:"remote"`
}

// Load reads and parses a cratespec.toml document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Resolve implements the CLI > file > error precedence for a single string
// parameter. flagValue is whatever the user passed on the command line
// (empty if unset); fileValue is the corresponding Config field (empty if
// the config file didn't set it, or there was no config file at all).
func Resolve(flagValue, fileValue, fieldName string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if fileValue != "" {
		return fileValue, nil
	}
	return "", fmt.Errorf("missing required parameter %q: set it via its CLI flag or in the config file", fieldName)
}

// ResolveOptional is Resolve without the final error: it returns the
// fallback (possibly empty) when neither flag nor file set a value, for
// parameters that are genuinely optional (e.g. --sig-type).
func ResolveOptional(flagValue, fileValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return fileValue
}
