package signatures

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"errors"
)

// CryptoAdapter is the entire extension surface for alternative signing
// backends (spec.md §4.4). container.Context depends only on this
// interface, never on a concrete implementation, so the remote-PKI variant
// (package network) can be swapped in without touching the encoder or
// decoder pipelines.
type CryptoAdapter interface {
	// Digest returns the SHA-256 digest of data.
	Digest(data []byte) [32]byte

	// Sign produces a PKCS#7-family SignedData whose encapsulated content
	// is exactly digest[:]. cert is the signer's certificate; key must
	// correspond to cert's public key.
	Sign(digest [32]byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error)

	// Verify validates the signer's certificate chain against roots and
	// returns the encapsulated digest bytes on success.
	Verify(signedPayload []byte, roots *x509.CertPool) ([]byte, error)
}

// Sentinel errors classifying adapter failures (spec.md §4.4, §7). The
// container package maps these (via errors.Is) onto its own typed
// FormatError so decoder callers get the byte-offset/section context the
// spec's error taxonomy requires without this package importing container
// and creating an import cycle.
var (
	ErrUntrustedChain   = errors.New("signer certificate chain does not terminate at a trusted root")
	ErrBadSignature     = errors.New("signature does not validate against signer certificate")
	ErrMalformedPayload = errors.New("signed payload is not a well-formed SignedData structure")
)

// LocalAdapter is the concrete local-signing implementation of
// CryptoAdapter: a hand-rolled PKCS#7/CMS construction over crypto/x509 and
// encoding/asn1, the same stdlib packages and SignedData/SignerInfo shape a
// NuGet-style package signer uses, simplified since there is only one
// signature kind here (no Author/Repository distinction) and the
// encapsulated content is always the covered-region digest itself, never
// omitted.
type LocalAdapter struct{}

// NewLocalAdapter returns the default local PKCS#7 crypto adapter.
func NewLocalAdapter() *LocalAdapter { return &LocalAdapter{} }

// Digest implements CryptoAdapter.
func (LocalAdapter) Digest(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// MeasureSignedSize signs a zero digest with cert/key to learn the exact
// serialized size of a real SignedData for this certificate and key type.
// An RSA signature's size depends only on the key's modulus, not the
// message, so this measurement is exact, not a heuristic bound — the
// approach spec.md §9 prescribes for backends without a static size bound
// ("pre-sign a dummy digest to measure the size"). This is also why Sign
// rejects non-RSA certificates: an ECDSA signature's DER encoding varies by
// a byte or two with the message, which would make this measurement only
// an approximate bound.
func (a LocalAdapter) MeasureSignedSize(cert *x509.Certificate, key crypto.Signer) (int, error) {
	var zero [32]byte
	payload, err := a.Sign(zero, cert, key)
	if err != nil {
		return 0, err
	}
	return len(payload), nil
}

// SizeEstimator is an optional capability a CryptoAdapter may implement to
// answer the encoder's placeholder-sizing question without performing a
// real signing pass (e.g. a remote adapter that knows its key's signature
// length from configuration). The encoder falls back to signing an
// all-zero digest via Sign when an adapter doesn't implement this.
type SizeEstimator interface {
	MeasureSignedSize(cert *x509.Certificate, key crypto.Signer) (int, error)
}
