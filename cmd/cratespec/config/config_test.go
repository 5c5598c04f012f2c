package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cratespec.toml")
	data := `cert_path = "/etc/cratespec/signer.pem"
key_path = "/etc/cratespec/signer.key"
output_dir = "/var/lib/cratespec/out"
sig_type = "cratebin"

[remote]
discovery_url = "https://pki.example.internal"
grpc_target = "pki.example.internal:443"
insecure = true
bearer_token = "test-token"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CertPath != "/etc/cratespec/signer.pem" {
		t.Errorf("CertPath = %q", cfg.CertPath)
	}
	if cfg.SigType != "cratebin" {
		t.Errorf("SigType = %q", cfg.SigType)
	}
	if cfg.Remote == nil {
		t.Fatal("expected a [remote] table")
	}
	if !cfg.Remote.Insecure {
		t.Error("expected Remote.Insecure = true")
	}
	if cfg.Remote.GRPCTarget != "pki.example.internal:443" {
		t.Errorf("Remote.GRPCTarget = %q", cfg.Remote.GRPCTarget)
	}
	if cfg.Remote.BearerToken != "test-token" {
		t.Errorf("Remote.BearerToken = %q", cfg.Remote.BearerToken)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/cratespec.toml"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		name      string
		flag      string
		file      string
		want      string
		wantError bool
	}{
		{"flag wins", "flagval", "fileval", "flagval", false},
		{"falls back to file", "", "fileval", "fileval", false},
		{"errors when neither set", "", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.flag, tc.file, "field")
			if tc.wantError {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("Resolve() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveOptional(t *testing.T) {
	if got := ResolveOptional("a", "b"); got != "a" {
		t.Errorf("ResolveOptional(a, b) = %q, want a", got)
	}
	if got := ResolveOptional("", "b"); got != "b" {
		t.Errorf("ResolveOptional(\"\", b) = %q, want b", got)
	}
	if got := ResolveOptional("", ""); got != "" {
		t.Errorf("ResolveOptional(\"\", \"\") = %q, want empty", got)
	}
}

func TestFindConfigFile_NoneExist(t *testing.T) {
	dir := t.TempDir()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	defer func() { _ = os.Chdir(cwd) }()

	t.Setenv("HOME", dir)

	if got := FindConfigFile(); got != "" {
		t.Errorf("FindConfigFile() = %q, want empty", got)
	}
}
