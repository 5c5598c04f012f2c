package container

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"errors"

	"github.com/LeeLiangmin/crate-spec/container/signatures"
)

// Decode runs the full nine-step decoder pipeline (spec.md §4.6) over a
// signed-package byte buffer, validating against roots, and returns the
// materialized package context or the first error encountered in the
// pipeline's strict order.
func Decode(buf []byte, roots *x509.CertPool) (*Context, error) {
	// Step 1 — length sanity.
	minLen := len(Magic) + headerSize + FingerprintSize
	if len(buf) < minLen {
		return nil, newErrAt(KindTooShort, int64(len(buf)), "buffer too small for magic, header, and fingerprint")
	}

	// Step 2 — fingerprint check, before even the magic is inspected, so
	// bit-level corruption is reported as corruption rather than as a
	// format mismatch.
	fpOffset := len(buf) - FingerprintSize
	want := sha256.Sum256(buf[:fpOffset])
	if !bytes.Equal(want[:], buf[fpOffset:]) {
		return nil, newErrAt(KindFingerprintMismatch, int64(fpOffset), "trailing fingerprint does not match preceding bytes")
	}

	// Step 3 — magic check.
	if !bytes.Equal(buf[:len(Magic)], Magic[:]) {
		return nil, newErrAt(KindBadMagic, 0, "first five bytes are not CRATE")
	}

	// Step 4 — header parse.
	header, err := unmarshalHeader(buf[len(Magic):])
	if err != nil {
		return nil, err
	}
	if header.Version != CurrentVersion {
		return nil, newErr(KindMalformedHeader, "unsupported version; no forward compatibility")
	}
	afterMagic := uint64(len(Magic))
	sectionsEnd := uint64(fpOffset)
	if err := validateHeaderRanges(header, afterMagic, sectionsEnd); err != nil {
		return nil, err
	}

	// Step 5 — string table parse.
	strTabBytes := buf[header.StrTabOffset : header.StrTabOffset+header.StrTabSize]
	strTab, err := ReadStringTable(strTabBytes)
	if err != nil {
		return nil, err
	}

	// Step 6 — section index parse.
	indexBytes := buf[header.IndexOffset : header.IndexOffset+header.IndexSize]
	si, err := unmarshalSectionIndex(indexBytes)
	if err != nil {
		return nil, err
	}
	for _, d := range si.entries {
		if d.Offset+d.Size > sectionsEnd || d.Offset < header.SectionsOffset {
			return nil, newErr(KindMalformedIndex, "section descriptor lies outside the sections region")
		}
		if !d.Kind.known() {
			return nil, newErr(KindUnknownSectionKind, "section index names an unrecognized section kind")
		}
	}

	// Step 7 — section bodies parse.
	pkgIdx := si.byKind(KindPackageSection)
	depIdx := si.byKind(KindDepTableSection)
	binIdx := si.byKind(KindCrateBinarySection)
	sigIdxs := si.allByKind(KindSigStructureSection)
	if pkgIdx < 0 || depIdx < 0 || binIdx < 0 || len(sigIdxs) == 0 {
		return nil, newErr(KindMalformedInput,
			"a signed package requires exactly one package section, one dependency table, one crate binary section, and at least one signature")
	}

	pkgDesc := si.entries[pkgIdx]
	pkgBody, err := unmarshalPackageSectionBody(sectionBytes(buf, pkgDesc))
	if err != nil {
		return nil, err
	}
	info, err := materializePackageInfo(strTab, pkgBody)
	if err != nil {
		return nil, err
	}

	depDesc := si.entries[depIdx]
	depBody, err := unmarshalDepTableSectionBody(sectionBytes(buf, depDesc))
	if err != nil {
		return nil, err
	}
	deps, err := materializeDeps(strTab, depBody)
	if err != nil {
		return nil, err
	}

	binDesc := si.entries[binIdx]
	crateBinary := append([]byte(nil), sectionBytes(buf, binDesc)...)

	type pendingSig struct {
		desc sectionDescriptor
		body sigStructureSectionBody
	}
	sigs := make([]pendingSig, 0, len(sigIdxs))
	for _, idx := range sigIdxs {
		desc := si.entries[idx]
		body, err := unmarshalSigStructureSectionBody(sectionBytes(buf, desc))
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, pendingSig{desc: desc, body: body})
	}

	ctx := &Context{
		Info:        info,
		Deps:        deps,
		CrateBinary: crateBinary,
		Roots:       roots,
		Adapter:     sigAdapterForDecode(),
	}

	// Step 8 — signature verification.
	for i, s := range sigs {
		var covered [32]byte
		switch s.body.Type {
		case SigTypeCrateBin:
			covered = ctx.Adapter.Digest(crateBinary)
		case SigTypeFile:
			covered = fileDigest(buf, si, header.IndexOffset, header.IndexSize)
		default:
			return nil, newErrSection(KindMalformedInput, i, "unknown signature type in decoded section")
		}

		cert, err := parseSingleCert(s.body.SignerCert)
		if err != nil {
			return nil, newErrSection(KindMalformedPayload, i, "parse signer certificate")
		}

		digestBytes, err := ctx.Adapter.Verify(s.body.SignedPayload, roots)
		if err != nil {
			return nil, classifyAdapterError(i, err)
		}
		if len(digestBytes) != len(covered) || !bytes.Equal(digestBytes, covered[:]) {
			return nil, newErrSection(KindSignatureDigestMismatch, i,
				"verified signature's encapsulated digest does not match the recomputed digest")
		}

		ctx.Sigs = append(ctx.Sigs, SigSlot{Type: s.body.Type, Cert: cert, Payload: s.body.SignedPayload})
	}

	// Step 9 — materialize: ctx is already fully populated above.
	return ctx, nil
}

func sectionBytes(buf []byte, d sectionDescriptor) []byte {
	return buf[d.Offset : d.Offset+d.Size]
}

func validateHeaderRanges(h *Header, afterMagic, sectionsEnd uint64) error {
	if h.StrTabOffset != afterMagic+headerSize {
		return newErr(KindMalformedHeader, "string table does not immediately follow the header")
	}
	if h.IndexOffset != h.StrTabOffset+h.StrTabSize {
		return newErr(KindMalformedHeader, "section index does not immediately follow the string table")
	}
	if h.SectionsOffset != h.IndexOffset+h.IndexSize {
		return newErr(KindMalformedHeader, "sections region does not immediately follow the section index")
	}
	if h.SectionsOffset+h.SectionsSize != sectionsEnd {
		return newErr(KindMalformedHeader, "sections region does not end exactly where the fingerprint begins")
	}
	return nil
}

func materializePackageInfo(strTab *StringTable, b packageSectionBody) (PackageInfo, error) {
	name, err := strTab.Resolve(b.Name)
	if err != nil {
		return PackageInfo{}, err
	}
	version, err := strTab.Resolve(b.Version)
	if err != nil {
		return PackageInfo{}, err
	}
	license, err := strTab.Resolve(b.License)
	if err != nil {
		return PackageInfo{}, err
	}
	authors := make([]string, 0, len(b.Authors))
	for _, ref := range b.Authors {
		a, err := strTab.Resolve(ref)
		if err != nil {
			return PackageInfo{}, err
		}
		authors = append(authors, a)
	}
	return PackageInfo{Name: name, Version: version, License: license, Authors: authors}, nil
}

func materializeDeps(strTab *StringTable, b depTableSectionBody) ([]DepInfo, error) {
	deps := make([]DepInfo, 0, len(b.Records))
	for _, r := range b.Records {
		name, err := strTab.Resolve(r.Name)
		if err != nil {
			return nil, err
		}
		versionReq, err := strTab.Resolve(r.VersionReq)
		if err != nil {
			return nil, err
		}
		d := DepInfo{Name: name, VersionReq: versionReq, SourceKind: r.SourceKind}
		if r.SourceKind != DepSourceCratesIo {
			d.SourceParam, err = strTab.Resolve(r.SourceParam)
			if err != nil {
				return nil, err
			}
		}
		if r.HasPlatform {
			platform, err := strTab.Resolve(r.Platform)
			if err != nil {
				return nil, err
			}
			d.Platform = &platform
		}
		deps = append(deps, d)
	}
	return deps, nil
}

func parseSingleCert(der []byte) (*x509.Certificate, error) {
	certs, err := x509.ParseCertificates(der)
	if err != nil || len(certs) == 0 {
		return nil, newErr(KindMalformedPayload, "signer certificate is not a well-formed DER certificate")
	}
	return certs[0], nil
}

// classifyAdapterError maps the sentinel errors the signatures package
// raises onto this package's typed FormatError, preserving the section
// index and the underlying error for diagnosis.
func classifyAdapterError(section int, err error) error {
	return newErrSection(classifyAdapterErrorKind(err), section, "signature verification failed").withWrapped(err)
}

// classifyAdapterErrorKind maps a signatures-package sentinel error onto
// this package's ErrorKind taxonomy (spec.md §4.4, §7).
func classifyAdapterErrorKind(err error) ErrorKind {
	switch {
	case errors.Is(err, signatures.ErrUntrustedChain):
		return KindUntrustedChain
	case errors.Is(err, signatures.ErrBadSignature):
		return KindBadSignature
	case errors.Is(err, signatures.ErrMalformedPayload):
		return KindMalformedPayload
	default:
		return KindBadSignature
	}
}

// sigAdapterForDecode returns the crypto adapter used to verify signatures
// during decode. The decode path always verifies locally — even packages
// signed via the remote-PKI variant carry an ordinary PKCS#7 SignedData
// that any LocalAdapter can verify, since remote signing only changes who
// holds the private key, not the wire format.
func sigAdapterForDecode() signatures.CryptoAdapter {
	return signatures.NewLocalAdapter()
}
