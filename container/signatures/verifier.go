package signatures

import (
	"bytes"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

// Verify implements CryptoAdapter.Verify: unwrap the outer ContentInfo,
// locate the signer certificate, check the authenticated attributes'
// signature, then verify the certificate chain against roots.
func (LocalAdapter) Verify(signedPayload []byte, roots *x509.CertPool) ([]byte, error) {
	var outer ContentInfo
	rest, err := asn1.Unmarshal(signedPayload, &outer)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal content info: %v", ErrMalformedPayload, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing bytes after content info", ErrMalformedPayload)
	}
	if !outer.ContentType.Equal(oidSignedData) {
		return nil, fmt.Errorf("%w: not a SignedData content type", ErrMalformedPayload)
	}

	var sd SignedData
	if _, err := asn1.Unmarshal(outer.Content.Bytes, &sd); err != nil {
		return nil, fmt.Errorf("%w: unmarshal signed data: %v", ErrMalformedPayload, err)
	}
	if len(sd.SignerInfos) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one signer info, got %d", ErrMalformedPayload, len(sd.SignerInfos))
	}
	signerInfo := sd.SignerInfos[0]

	certs, err := x509.ParseCertificates(sd.Certificates.Bytes)
	if err != nil || len(certs) == 0 {
		return nil, fmt.Errorf("%w: parse signer certificate: %v", ErrMalformedPayload, err)
	}
	cert := certs[0]

	var digestBytes []byte
	if _, err := asn1.Unmarshal(sd.ContentInfo.Content.Bytes, &digestBytes); err != nil {
		return nil, fmt.Errorf("%w: unmarshal encapsulated content: %v", ErrMalformedPayload, err)
	}

	if err := verifySignedAttrsDigest(signerInfo, digestBytes); err != nil {
		return nil, err
	}

	if err := verifySignerInfoSignature(signerInfo, cert); err != nil {
		return nil, err
	}

	// KeyUsages defaults to ExtKeyUsageServerAuth when left unset, which
	// would reject a code-signing-only certificate chain; this verifier
	// checks trust, not TLS server identity, so any EKU the chain presents
	// is acceptable.
	opts := x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny}}
	if _, err := cert.Verify(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUntrustedChain, err)
	}

	return digestBytes, nil
}

// verifySignedAttrsDigest recomputes SHA-256 of the encapsulated content
// and compares it against the message-digest authenticated attribute,
// rejecting any SignedData whose attributes don't actually describe the
// content they're attached to.
func verifySignedAttrsDigest(signerInfo SignerInfo, content []byte) error {
	var attrs []Attribute
	// SignedAttrs carries [0] IMPLICIT tagging; re-tag it as a universal
	// SET so asn1 can decode it as []Attribute.
	setBytes := reTagAsSet(signerInfo.SignedAttrs)
	if _, err := asn1.UnmarshalWithParams(setBytes, &attrs, "set"); err != nil {
		return fmt.Errorf("%w: unmarshal signed attributes: %v", ErrMalformedPayload, err)
	}

	want := sha256.Sum256(content)
	for _, a := range attrs {
		if !a.Type.Equal(oidMessageDigest) {
			continue
		}
		// Values is SET OF OCTET STRING with exactly one element; its
		// content bytes are that single element's full TLV encoding.
		var got []byte
		if _, err := asn1.Unmarshal(a.Values.Bytes, &got); err != nil {
			return fmt.Errorf("%w: unmarshal message-digest attribute: %v", ErrMalformedPayload, err)
		}
		if !bytes.Equal(got, want[:]) {
			return fmt.Errorf("%w: message-digest attribute does not match encapsulated content", ErrBadSignature)
		}
		return nil
	}
	return fmt.Errorf("%w: missing required message-digest attribute", ErrMalformedPayload)
}

// verifySignerInfoSignature checks the RSA signature over the signed
// attributes. Only RSA is accepted: the local adapter's Sign never
// produces anything else (see signer.go), and accepting an ECDSA signer
// here would verify payloads this format's own encoder could never have
// placeholder-sized correctly in the first place.
func verifySignerInfoSignature(signerInfo SignerInfo, cert *x509.Certificate) error {
	attrsForHash := reTagAsSet(signerInfo.SignedAttrs)
	h := sha256.Sum256(attrsForHash)

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: unsupported signer public key type %T", ErrMalformedPayload, cert.PublicKey)
	}
	if err := rsa.VerifyPKCS1v15(pub, getCryptoHash(), h[:], signerInfo.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return nil
}

// reTagAsSet rewrites a [0] IMPLICIT-tagged raw value (class context-specific,
// tag 0) back into a universal SET (tag 17, constructed) so the standard
// asn1 decoder can unmarshal its contents, mirroring the inverse of
// signedAttrsRawValue.
func reTagAsSet(v asn1.RawValue) []byte {
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
