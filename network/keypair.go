// Package network implements the remote-PKI variant of the signing backend:
// a signatures.CryptoAdapter that delegates Sign and Verify to a remote PKI
// service over gRPC instead of holding private key material locally,
// grounded in original_source/src/network.rs and adapted into this repo's
// idiom using the teacher's http.RetryConfig and resilience.CircuitBreaker.
package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// keypairFileMode restricts the on-disk keypair cache to owner read/write,
// mirroring original_source's KEYPAIR_FILE_MODE.
const keypairFileMode = 0o600

// BaseConfig names the algorithm, KMS backend, and signing flow a keypair
// was issued under. It travels alongside every PKI request/response and is
// persisted with the keypair itself (original_source's BaseConfig).
type BaseConfig struct {
	Algo string
	KMS  string
	Flow string
}

// KeyPair is the local cache record for a remotely-issued signing key:
// original_source keeps PrivKey/PubKey as opaque KMS-handle strings rather
// than raw key bytes, since the private key material itself never leaves
// the PKI platform.
type KeyPair struct {
	PrivKey    string
	PubKey     string
	KeyID      string
	BaseConfig BaseConfig
}

// LoadFromFile decodes a KeyPair cached on disk. Serialization uses
// encoding/gob rather than a third-party codec: this file is a private,
// process-local cache artifact that never crosses the wire or appears in
// the signed-package format, so there's no interoperability requirement
// pulling in a third-party serialization library (the closest stdlib
// analogue to original_source's bincode).
func LoadFromFile(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keypair file %s: %w", path, err)
	}

	var kp KeyPair
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&kp); err != nil {
		return nil, fmt.Errorf("decoding keypair file %s: %w", path, err)
	}
	return &kp, nil
}

// SaveToFile persists the keypair to path, creating parent directories as
// needed and restricting permissions to the owner.
func (kp *KeyPair) SaveToFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating keypair directory: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(kp); err != nil {
		return fmt.Errorf("encoding keypair: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), keypairFileMode); err != nil {
		return fmt.Errorf("writing keypair file %s: %w", path, err)
	}
	return os.Chmod(path, keypairFileMode)
}

// LoadOrFetch tries the local cache first and falls back to issuing a new
// keypair from the PKI platform, saving it back to path on success. This
// mirrors original_source's KeyPair::get_or_fetch.
func LoadOrFetch(path string, client *PKIClient, cfg BaseConfig) (*KeyPair, error) {
	if kp, err := LoadFromFile(path); err == nil {
		return kp, nil
	}

	kp, err := client.FetchKeyPair(cfg)
	if err != nil {
		return nil, fmt.Errorf("fetching keypair from PKI platform: %w", err)
	}

	if err := kp.SaveToFile(path); err != nil {
		return nil, fmt.Errorf("caching fetched keypair: %w", err)
	}
	return kp, nil
}
