package container

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"

	"github.com/LeeLiangmin/crate-spec/container/signatures"
)

// byteRange is a half-open [Start, End) byte range within the provisional
// file buffer, used to describe the regions a FILE-type signature excludes
// from its digest.
type byteRange struct {
	Start, End uint64
}

// Encode runs the full three-phase encoder pipeline (spec.md §4.5) over a
// fully-populated context and returns the bytes of a valid signed package.
// ctx must have at least one signature slot configured.
func Encode(ctx *Context) ([]byte, error) {
	if ctx.Info.Name == "" {
		return nil, newErr(KindManifestParseError, "package name is required")
	}
	if len(ctx.Sigs) == 0 {
		return nil, newErr(KindManifestParseError, "at least one signature slot is required")
	}

	strTab := NewStringTable()
	pkgBody := packageSectionBody{
		Name:    strTab.Intern(ctx.Info.Name),
		Version: strTab.Intern(ctx.Info.Version),
		License: strTab.Intern(ctx.Info.License),
	}
	for _, a := range ctx.Info.Authors {
		pkgBody.Authors = append(pkgBody.Authors, strTab.Intern(a))
	}

	depBody := depTableSectionBody{}
	for _, d := range ctx.Deps {
		rec := depRecordBody{
			Name:       strTab.Intern(d.Name),
			VersionReq: strTab.Intern(d.VersionReq),
			SourceKind: d.SourceKind,
		}
		if d.SourceKind != DepSourceCratesIo {
			rec.SourceParam = strTab.Intern(d.SourceParam)
		}
		if d.Platform != nil {
			rec.HasPlatform = true
			rec.Platform = strTab.Intern(*d.Platform)
		}
		depBody.Records = append(depBody.Records, rec)
	}

	// Phase 1 — skeleton: emit section bodies in canonical order, with
	// zero-filled placeholder signature bodies of exact final length.
	type pendingSection struct {
		kind SectionKind
		body []byte
	}
	sections := []pendingSection{
		{KindPackageSection, pkgBody.marshal()},
		{KindDepTableSection, depBody.marshal()},
		{KindCrateBinarySection, ctx.CrateBinary},
	}

	placeholderPayloadLen := make([]int, len(ctx.Sigs))
	for i, slot := range ctx.Sigs {
		var zero [32]byte
		measured, err := measureSignedSize(ctx.Adapter, slot.Cert, slot.Key, zero)
		if err != nil {
			return nil, wrapErr(KindBadSignature, err, "measure signature placeholder size")
		}
		placeholderPayloadLen[i] = measured
		body := sigStructureSectionBody{
			Type:          slot.Type,
			SignerCert:    slot.Cert.Raw,
			SignedPayload: make([]byte, measured),
		}
		sections = append(sections, pendingSection{KindSigStructureSection, body.marshal()})
	}

	strTabBytes := strTab.Bytes()
	strTabOffset := uint64(len(Magic)) + uint64(headerSize)
	strTabSize := uint64(len(strTabBytes))
	indexOffset := strTabOffset + strTabSize
	indexSize := uint64(4 + len(sections)*sectionDescSize)
	sectionsOffset := indexOffset + indexSize

	si := &sectionIndex{}
	cursor := sectionsOffset
	sectionBodies := make([][]byte, len(sections))
	for i, s := range sections {
		si.entries = append(si.entries, sectionDescriptor{Kind: s.kind, Offset: cursor, Size: uint64(len(s.body))})
		sectionBodies[i] = s.body
		cursor += uint64(len(s.body))
	}
	sectionsSize := cursor - sectionsOffset

	header := &Header{
		Version:        CurrentVersion,
		StrTabOffset:   strTabOffset,
		StrTabSize:     strTabSize,
		IndexOffset:    indexOffset,
		IndexSize:      indexSize,
		SectionsOffset: sectionsOffset,
		SectionsSize:   sectionsSize,
	}

	buf := make([]byte, 0, sectionsOffset+sectionsSize+FingerprintSize)
	buf = append(buf, Magic[:]...)
	buf = append(buf, header.marshal()...)
	buf = append(buf, strTabBytes...)
	buf = append(buf, si.marshal()...)
	for _, b := range sectionBodies {
		buf = append(buf, b...)
	}
	buf = append(buf, make([]byte, FingerprintSize)...)

	// Phase 2 — signature fill.
	sigSectionIdx := si.allByKind(KindSigStructureSection)
	for i, slot := range ctx.Sigs {
		desc := si.entries[sigSectionIdx[i]]

		var covered [32]byte
		switch slot.Type {
		case SigTypeCrateBin:
			covered = ctx.Adapter.Digest(ctx.CrateBinary)
		case SigTypeFile:
			covered = fileDigest(buf, si, indexOffset, indexSize)
		default:
			return nil, newErr(KindMalformedInput, "unknown signature type in pending slot")
		}

		signedPayload, err := ctx.Adapter.Sign(covered, slot.Cert, slot.Key)
		if err != nil {
			return nil, wrapErr(KindBadSignature, err, "sign covered digest")
		}
		if len(signedPayload) > placeholderPayloadLen[i] {
			return nil, newErrSection(KindSignaturePayloadOverflow, i,
				"signed payload exceeds reserved placeholder size")
		}
		padded := make([]byte, placeholderPayloadLen[i])
		copy(padded, signedPayload)

		finalBody := sigStructureSectionBody{
			Type:          slot.Type,
			SignerCert:    slot.Cert.Raw,
			SignedPayload: padded,
		}.marshal()
		if uint64(len(finalBody)) != desc.Size {
			return nil, newErrSection(KindSignaturePayloadOverflow, i,
				"final signature body size does not match reserved section size")
		}
		copy(buf[desc.Offset:desc.Offset+desc.Size], finalBody)
	}

	// Phase 3 — finalize: section index and header offsets are already
	// final (every placeholder was reserved at its exact measured size),
	// so only the tail fingerprint remains to be computed and written.
	sectionsEnd := sectionsOffset + sectionsSize
	fp := sha256.Sum256(buf[:sectionsEnd])
	copy(buf[sectionsEnd:sectionsEnd+FingerprintSize], fp[:])

	return buf, nil
}

// measureSignedSize learns the exact serialized SignedData size an adapter
// and key type will produce. Adapters implementing signatures.SizeEstimator
// can answer without actually signing; otherwise this falls back to signing
// an all-zero digest. This is exact rather than a bound for RSA, whose
// signature length depends only on the key's modulus; both
// signatures.LocalAdapter and network.RemoteAdapter reject non-RSA signer
// certificates precisely because that guarantee doesn't hold for ECDSA.
func measureSignedSize(adapter signatures.CryptoAdapter, cert *x509.Certificate, key crypto.Signer, zero [32]byte) (int, error) {
	if se, ok := adapter.(signatures.SizeEstimator); ok {
		return se.MeasureSignedSize(cert, key)
	}
	payload, err := adapter.Sign(zero, cert, key)
	if err != nil {
		return 0, err
	}
	return len(payload), nil
}

// fileDigest computes the SHA-256 of buf with every SigStructureSection
// body, the section index, and the trailing fingerprint region excluded —
// by skipping those byte ranges when feeding the hasher, never by zeroing
// them (spec.md §4.5; this is a deliberate divergence from the Rust
// original's zero-fill approach, see DESIGN.md).
func fileDigest(buf []byte, si *sectionIndex, indexOffset, indexSize uint64) [32]byte {
	excluded := []byteRange{{Start: indexOffset, End: indexOffset + indexSize}}
	for _, d := range si.entries {
		if d.Kind == KindSigStructureSection {
			excluded = append(excluded, byteRange{Start: d.Offset, End: d.Offset + d.Size})
		}
	}
	excluded = append(excluded, byteRange{Start: uint64(len(buf)) - FingerprintSize, End: uint64(len(buf))})
	return hashExcluding(buf, excluded)
}

// hashExcluding feeds buf into a SHA-256 hasher, skipping every byte range
// in excluded (which need not be sorted or disjoint on input).
func hashExcluding(buf []byte, excluded []byteRange) [32]byte {
	ranges := mergeRanges(excluded)
	h := sha256.New()
	var cursor uint64
	for _, r := range ranges {
		if r.Start > cursor {
			h.Write(buf[cursor:r.Start])
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if cursor < uint64(len(buf)) {
		h.Write(buf[cursor:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func mergeRanges(ranges []byteRange) []byteRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]byteRange(nil), ranges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Start > sorted[j].Start; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	merged := []byteRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
