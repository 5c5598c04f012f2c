package network

import (
	"context"
	"crypto"
	"encoding/hex"
	"fmt"
	"io"
)

// remotePublicKey is an opaque platform-issued key handle, not a Go crypto
// public key value: the PKI platform identifies keys by string ID, never by
// exporting raw key material.
type remotePublicKey string

// RemoteSigner implements crypto.Signer by forwarding the raw signing
// operation to a PKI platform instead of holding private key material in
// the process. It is meant to be passed as the key argument to
// RemoteAdapter.Sign (and, through it, to signatures.LocalAdapter's CMS
// construction), so the same SignerInfo-building code that signs locally
// works unchanged for the remote variant: only where the signature math
// happens differs.
type RemoteSigner struct {
	KeyPair *KeyPair
	Client  *PKIClient

	// Ctx, if set, is used for the Sign RPC; defaults to context.Background
	// since crypto.Signer.Sign carries no context parameter.
	Ctx context.Context
}

// NewRemoteSigner returns a RemoteSigner bound to keyPair's identity on the
// PKI platform reachable through client.
func NewRemoteSigner(keyPair *KeyPair, client *PKIClient) *RemoteSigner {
	return &RemoteSigner{KeyPair: keyPair, Client: client}
}

// Public implements crypto.Signer.
func (s *RemoteSigner) Public() crypto.PublicKey {
	return remotePublicKey(s.KeyPair.PubKey)
}

// Sign implements crypto.Signer. digest is the SHA-256 hash of the CMS
// signed attributes (crypto.SHA256 in opts); the PKI platform is assumed to
// perform the same RSA-PKCS1v15 raw signing operation a local crypto.Signer
// would (signatures.LocalAdapter.Sign only ever hands this a certificate
// with an RSA public key), so the bytes it returns verify against the
// certificate the same way signatures.LocalAdapter.Verify already checks
// local signatures.
func (s *RemoteSigner) Sign(_ io.Reader, digest []byte, _ crypto.SignerOpts) ([]byte, error) {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	sigHex, _, err := s.Client.SignDigest(ctx, s.KeyPair, hex.EncodeToString(digest))
	if err != nil {
		return nil, fmt.Errorf("remote sign: %w", err)
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, fmt.Errorf("remote sign: platform returned non-hex signature: %w", err)
	}
	return sig, nil
}
