package network

import (
	"context"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"fmt"

	"github.com/LeeLiangmin/crate-spec/container/signatures"
)

// RemoteAdapter implements signatures.CryptoAdapter by delegating Sign and
// Verify to a remote PKI platform: Digest never needs the network (SHA-256
// is computed locally either way), but the private-key operation backing
// Sign and the authority check backing Verify both call out.
//
// Sign reuses signatures.LocalAdapter's CMS/SignedData construction
// unchanged — the same SignedData shape spec.md §4.4 requires — passing it
// a RemoteSigner in place of a local crypto.Signer, so the resulting
// payload is byte-for-byte the same PKCS#7-family structure a local
// signature would produce — including LocalAdapter.Sign's RSA-only
// restriction, since the remote platform's key is still plugged into the
// same CMS construction. Verify checks that structure locally (the same
// RSA math signatures.LocalAdapter.Verify performs) and then additionally
// confirms the signature against the PKI platform itself,
// which can reject a signature local chain validation alone cannot: a key
// revoked after issuance.
type RemoteAdapter struct {
	client *PKIClient

	// keyPair identifies which platform-held key Verify should ask the
	// platform to check against. A single RemoteAdapter instance verifies
	// against one configured PKI identity, mirroring original_source's
	// verify_digest call sites where the caller always supplies its own
	// pub_key/base_config rather than recovering it from the package.
	keyPair *KeyPair
}

// NewRemoteAdapter returns a CryptoAdapter backed by the PKI platform
// reachable through client, verifying against keyPair's identity.
func NewRemoteAdapter(client *PKIClient, keyPair *KeyPair) *RemoteAdapter {
	return &RemoteAdapter{client: client, keyPair: keyPair}
}

// Digest implements signatures.CryptoAdapter.
func (ra *RemoteAdapter) Digest(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Sign implements signatures.CryptoAdapter. key must be a *RemoteSigner
// (or any crypto.Signer whose Sign method reaches the PKI platform); the
// CMS envelope construction itself is unchanged from local signing.
func (ra *RemoteAdapter) Sign(digest [32]byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	return signatures.NewLocalAdapter().Sign(digest, cert, key)
}

// Verify implements signatures.CryptoAdapter.
func (ra *RemoteAdapter) Verify(signedPayload []byte, roots *x509.CertPool) ([]byte, error) {
	digestBytes, err := signatures.NewLocalAdapter().Verify(signedPayload, roots)
	if err != nil {
		return nil, err
	}

	rawSig, attrsHash, err := extractSignerInfoSignature(signedPayload)
	if err != nil {
		return nil, err
	}

	// The platform is asked to re-check the signature over the same bytes
	// it originally signed — the CMS signed-attributes hash, not the
	// encapsulated content digest — so this confirmation call validates
	// the exact value RemoteSigner.Sign handed it.
	ok, err := ra.client.VerifyDigest(
		context.Background(),
		ra.keyPair.PubKey,
		hex.EncodeToString(attrsHash[:]),
		hex.EncodeToString(rawSig),
		ra.keyPair.BaseConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: pki platform verification call failed: %v", signatures.ErrBadSignature, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: pki platform rejected signature", signatures.ErrBadSignature)
	}

	return digestBytes, nil
}

// extractSignerInfoSignature re-parses the CMS envelope's outer layers to
// recover the raw signature bytes and the signed-attributes hash
// LocalAdapter.Verify already validated locally, so the same pair can be
// forwarded to the platform's verify_digest RPC. It reuses signatures'
// exported ContentInfo/SignedData/SignerInfo types rather than duplicating
// their ASN.1 tagging.
func extractSignerInfoSignature(signedPayload []byte) (rawSig []byte, attrsHash [32]byte, err error) {
	var outer signatures.ContentInfo
	if _, err := asn1.Unmarshal(signedPayload, &outer); err != nil {
		return nil, attrsHash, fmt.Errorf("%w: unmarshal content info: %v", signatures.ErrMalformedPayload, err)
	}

	var sd signatures.SignedData
	if _, err := asn1.Unmarshal(outer.Content.Bytes, &sd); err != nil {
		return nil, attrsHash, fmt.Errorf("%w: unmarshal signed data: %v", signatures.ErrMalformedPayload, err)
	}
	if len(sd.SignerInfos) != 1 {
		return nil, attrsHash, fmt.Errorf("%w: expected exactly one signer info, got %d", signatures.ErrMalformedPayload, len(sd.SignerInfos))
	}

	signerInfo := sd.SignerInfos[0]
	attrsHash = sha256.Sum256(reTagSignedAttrsAsSet(signerInfo.SignedAttrs))
	return signerInfo.Signature, attrsHash, nil
}

// reTagSignedAttrsAsSet rewrites a [0] IMPLICIT-tagged raw value back into
// a universal SET so its bytes hash the same way the original signing pass
// hashed them (signatures.signAttributes' inverse construction) — the CMS
// signature covers the SET encoding of the signed attributes, not their
// context-specific tagging inside SignerInfo.
func reTagSignedAttrsAsSet(v asn1.RawValue) []byte {
	out, err := asn1.MarshalWithParams(asn1.RawValue{
		Class:      asn1.ClassUniversal,
		Tag:        asn1.TagSet,
		IsCompound: true,
		Bytes:      v.Bytes,
	}, "")
	if err != nil {
		return v.FullBytes
	}
	return out
}
