// Package signatures implements the cryptographic adapter interface: a
// narrow digest/sign/verify seam over a hand-rolled PKCS#7/CMS SignedData
// construction (RFC 5652), the same way a NuGet package signer builds its
// signatures — with encoding/asn1 directly rather than a third-party PKCS#7
// library, since no suitable SignedData builder exists for an attached
// digest payload.
package signatures

import (
	"crypto"
	"encoding/asn1"
)

// OID constants, identical in meaning to RFC 5652/2985/5035's definitions
// used by the teacher's own cms.go/reader.go.
var (
	oidData       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}

	oidContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	oidSigningTime   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}

	oidSHA256WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidSHA256        = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
)

// ContentInfo is the outer CMS wrapper (RFC 5652 §3).
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

// SignedData is the RFC 5652 §5.1 SignedData structure. Unlike the
// teacher's detached NuGet signatures, ContentInfo.Content is always
// present here: the encapsulated content is exactly the covered-region
// digest bytes (spec.md §4.4, "a PKCS#7-family SignedData whose
// encapsulated content is exactly digest_bytes").
type SignedData struct {
	Version          int                   `asn1:"default:1"`
	DigestAlgorithms []AlgorithmIdentifier `asn1:"set"`
	ContentInfo      EncapsulatedContentInfo
	Certificates     asn1.RawValue `asn1:"optional,tag:0"`
	SignerInfos      []SignerInfo  `asn1:"set"`
}

// EncapsulatedContentInfo carries the signed content itself.
type EncapsulatedContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

// SignerInfo is the RFC 5652 §5.3 SignerInfo structure.
type SignerInfo struct {
	Version            int           `asn1:"default:1"`
	SID                asn1.RawValue // SignerIdentifier (CHOICE)
	DigestAlgorithm    AlgorithmIdentifier
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm AlgorithmIdentifier
	Signature          []byte
}

// IssuerAndSerialNumber identifies a certificate by issuer DN and serial.
type IssuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber asn1.RawValue
}

// AlgorithmIdentifier identifies a digest or signature algorithm.
type AlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// Attribute is a CMS authenticated attribute (RFC 5652 §5.3).
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue `asn1:"set"`
}

func getCryptoHash() crypto.Hash { return crypto.SHA256 }
