package commands

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/LeeLiangmin/crate-spec/cmd/cratespec/output"
)

const keyringService = "cratespec"

// loadCertificate reads a single PEM-encoded certificate from path.
func loadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%s: no PEM CERTIFICATE block found", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, nil
}

// loadRoots reads zero or more concatenated PEM certificates into a pool.
func loadRoots(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trusted roots: %w", err)
	}

	pool := x509.NewCertPool()
	rest := data
	count := 0
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse root certificate: %w", err)
		}
		pool.AddCert(cert)
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("%s: no PEM CERTIFICATE blocks found", path)
	}
	return pool, nil
}

// loadPrivateKey reads a PEM-encoded private key from path. Legacy
// passphrase-encrypted PEM blocks (DEK-Info present) are decrypted with
// passphrase, matching the encrypted key files openssl still produces for
// this key size; unencrypted PKCS#8/PKCS#1/SEC1 blocks ignore passphrase.
func loadPrivateKey(path, passphrase string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found", path)
	}

	der := block.Bytes
	//lint:ignore SA1019 encrypted PEM is the on-disk format this command supports for passphrase-protected keys
	if x509.IsEncryptedPEMBlock(block) {
		if passphrase == "" {
			return nil, fmt.Errorf("%s: key is passphrase-encrypted but no passphrase was supplied", path)
		}
		//lint:ignore SA1019 see above
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("decrypt private key: %w", err)
		}
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(der)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(der)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#8 private key: %w", err)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%s: key type %T does not implement crypto.Signer", path, key)
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("%s: unsupported PEM block type %q", path, block.Type)
	}
}

// isEncryptedKeyFile reports whether path's PEM block carries legacy
// DEK-Info encryption, without otherwise parsing the key.
func isEncryptedKeyFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return false, fmt.Errorf("%s: no PEM block found", path)
	}
	//lint:ignore SA1019 see loadPrivateKey
	return x509.IsEncryptedPEMBlock(block), nil
}

// resolvePassphrase retrieves the cached unlock passphrase for keyID from
// the OS keyring, prompting interactively (echo disabled) and caching the
// result when no entry exists. In --non-interactive mode, a missing cache
// entry is an error rather than a prompt.
func resolvePassphrase(console *output.Console, keyID string, nonInteractive bool) (string, error) {
	if cached, err := keyring.Get(keyringService, keyID); err == nil {
		return cached, nil
	} else if err != keyring.ErrNotFound {
		console.Debug("keyring lookup for %s failed, falling back to prompt: %v", keyID, err)
	}

	if nonInteractive {
		return "", fmt.Errorf("no cached passphrase for %s and --non-interactive was set", keyID)
	}

	fmt.Fprintf(console.Stderr(), "Enter passphrase to unlock signing key (%s): ", keyID)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(console.Stderr())
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	passphrase := string(raw)

	if err := keyring.Set(keyringService, keyID, passphrase); err != nil {
		console.Warning("could not cache passphrase in OS keyring: %v", err)
	}

	return passphrase, nil
}
