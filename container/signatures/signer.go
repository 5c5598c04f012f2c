package signatures

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"time"
)

// Sign implements CryptoAdapter.Sign, building the SignedData/SignerInfo
// structure a NuGet-style package signer builds, but with an attached (not
// detached) encapsulated content: the EncapsulatedContentInfo.Content is
// the covered-region digest itself.
//
// Only RSA signer certificates are supported. An ECDSA (r,s) signature's
// DER encoding varies by a byte or two with the leading bits of r and s,
// which depend on the digest actually signed — so a placeholder measured
// by pre-signing a zero digest (see MeasureSignedSize) is not a reliable
// upper bound the way it is for RSA's fixed-width signature. Rejecting
// ECDSA here keeps the placeholder-reservation phase exact rather than
// approximate.
func (LocalAdapter) Sign(digest [32]byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	if _, ok := cert.PublicKey.(*rsa.PublicKey); !ok {
		return nil, fmt.Errorf("local PKCS#7 adapter supports RSA signer certificates only, got %T", cert.PublicKey)
	}

	signedData, err := createSignedData(digest, cert, key)
	if err != nil {
		return nil, fmt.Errorf("create signed data: %w", err)
	}

	signedDataBytes, err := asn1.Marshal(*signedData)
	if err != nil {
		return nil, fmt.Errorf("marshal signed data: %w", err)
	}

	contentInfo := ContentInfo{
		ContentType: oidSignedData,
		Content: asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      signedDataBytes,
		},
	}

	out, err := asn1.Marshal(contentInfo)
	if err != nil {
		return nil, fmt.Errorf("marshal content info: %w", err)
	}
	return out, nil
}

func createSignedData(digest [32]byte, cert *x509.Certificate, key crypto.Signer) (*SignedData, error) {
	contentBytes, err := asn1.Marshal(digest[:])
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	encapContentInfo := EncapsulatedContentInfo{
		ContentType: oidData,
		Content: asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      contentBytes,
		},
	}

	signerInfo, err := createSignerInfo(digest, cert, key)
	if err != nil {
		return nil, fmt.Errorf("create signer info: %w", err)
	}

	return &SignedData{
		Version:          1,
		DigestAlgorithms: []AlgorithmIdentifier{{Algorithm: oidSHA256}},
		ContentInfo:      encapContentInfo,
		Certificates: asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      cert.Raw,
		},
		SignerInfos: []SignerInfo{*signerInfo},
	}, nil
}

func createSignerInfo(digest [32]byte, cert *x509.Certificate, key crypto.Signer) (*SignerInfo, error) {
	issuerAndSerial := IssuerAndSerialNumber{
		Issuer:       asn1.RawValue{FullBytes: cert.RawIssuer},
		SerialNumber: asn1.RawValue{FullBytes: cert.SerialNumber.Bytes()},
	}
	sidBytes, err := asn1.Marshal(issuerAndSerial)
	if err != nil {
		return nil, fmt.Errorf("marshal issuer and serial: %w", err)
	}
	sid := asn1.RawValue{FullBytes: sidBytes}

	attrs, err := buildSignedAttributes(digest)
	if err != nil {
		return nil, fmt.Errorf("build signed attributes: %w", err)
	}

	attrsBytes, err := asn1.MarshalWithParams(attrs, "set")
	if err != nil {
		return nil, fmt.Errorf("encode signed attributes: %w", err)
	}

	signature, err := signAttributes(attrsBytes, key)
	if err != nil {
		return nil, fmt.Errorf("sign attributes: %w", err)
	}

	return &SignerInfo{
		Version:            1,
		SID:                sid,
		DigestAlgorithm:    AlgorithmIdentifier{Algorithm: oidSHA256},
		SignedAttrs:        signedAttrsRawValue(attrsBytes),
		SignatureAlgorithm: AlgorithmIdentifier{Algorithm: signatureAlgorithmOID(cert)},
		Signature:          signature,
	}, nil
}

// buildSignedAttributes builds the minimal required CMS authenticated
// attributes for this format: content-type, signing-time, and
// message-digest (RFC 5652 §11). Unlike the teacher's NuGet attributes
// there is no commitment-type-indication or signing-certificate-v2 — this
// format has no Author/Repository distinction and binds the certificate
// via the section body's SignerCert field directly, not an ESS attribute.
func buildSignedAttributes(digest [32]byte) ([]Attribute, error) {
	var attrs []Attribute

	ctVal, err := asn1.Marshal(oidData)
	if err != nil {
		return nil, err
	}
	ctValues, err := asn1.Marshal([]asn1.RawValue{{FullBytes: ctVal}})
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, Attribute{Type: oidContentType, Values: asn1.RawValue{FullBytes: ctValues}})

	// asn1.Marshal renders a time.Time as UTCTime through 2049 and
	// GeneralizedTime from 2050 on, which shifts the signing-time
	// attribute's encoded length by a couple of bytes at that boundary.
	// Harmless given RSA's fixed signature width, but a reminder that the
	// exact-measurement guarantee is about signature size, not about every
	// byte of SignedData being length-stable forever.
	stVal, err := asn1.Marshal(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	stValues, err := asn1.Marshal([]asn1.RawValue{{FullBytes: stVal}})
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, Attribute{Type: oidSigningTime, Values: asn1.RawValue{FullBytes: stValues}})

	h := getCryptoHash().New()
	h.Write(digest[:])
	contentDigest := h.Sum(nil)
	mdVal, err := asn1.Marshal(contentDigest)
	if err != nil {
		return nil, err
	}
	mdValues, err := asn1.Marshal([]asn1.RawValue{{FullBytes: mdVal}})
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, Attribute{Type: oidMessageDigest, Values: asn1.RawValue{FullBytes: mdValues}})

	return attrs, nil
}

func signAttributes(attrsBytes []byte, key crypto.Signer) ([]byte, error) {
	h := getCryptoHash().New()
	h.Write(attrsBytes)
	digest := h.Sum(nil)
	return key.Sign(rand.Reader, digest, getCryptoHash())
}

// signedAttrsRawValue re-tags a DER SET OF Attribute as [0] IMPLICIT, per
// RFC 5652 §5.3 (the SET tag/length are replaced by the context tag, the
// content is unchanged).
func signedAttrsRawValue(attrsBytes []byte) asn1.RawValue {
	var raw asn1.RawValue
	if _, err := asn1.Unmarshal(attrsBytes, &raw); err != nil {
		return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: attrsBytes[1:]}
	}
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: raw.Bytes}
}

// signatureAlgorithmOID always returns the RSA OID: Sign has already
// rejected any cert whose public key isn't *rsa.PublicKey by the time this
// is called.
func signatureAlgorithmOID(cert *x509.Certificate) asn1.ObjectIdentifier {
	return oidSHA256WithRSA
}
