package container

// SectionKind is the stable integer tag identifying a data section's
// contents (spec.md §3).
type SectionKind uint32

const (
	// KindPackageSection carries name, version, license, authors.
	KindPackageSection SectionKind = 0
	// KindDepTableSection carries the ordered dependency list.
	KindDepTableSection SectionKind = 1
	// kindReserved is the historical gap: never emitted, never decoded.
	kindReserved SectionKind = 2
	// KindCrateBinarySection carries the opaque inner-package bytes.
	KindCrateBinarySection SectionKind = 3
	// KindSigStructureSection carries one signature record.
	KindSigStructureSection SectionKind = 4
)

func (k SectionKind) known() bool {
	switch k {
	case KindPackageSection, KindDepTableSection, KindCrateBinarySection, KindSigStructureSection:
		return true
	default:
		return false
	}
}

// sectionDescriptor is one entry of the section index: the kind, offset,
// and size of a data section body.
type sectionDescriptor struct {
	Kind   SectionKind
	Offset uint64
	Size   uint64
}

func (d sectionDescriptor) marshal() []byte {
	buf := make([]byte, 0, sectionDescSize)
	buf = putUint32(buf, uint32(d.Kind))
	buf = putUint64(buf, d.Offset)
	buf = putUint64(buf, d.Size)
	return buf
}

func unmarshalSectionDescriptor(buf []byte) (sectionDescriptor, []byte, error) {
	kind, rest, err := readUint32(buf)
	if err != nil {
		return sectionDescriptor{}, nil, err
	}
	offset, rest, err := readUint64(rest)
	if err != nil {
		return sectionDescriptor{}, nil, err
	}
	size, rest, err := readUint64(rest)
	if err != nil {
		return sectionDescriptor{}, nil, err
	}
	return sectionDescriptor{Kind: SectionKind(kind), Offset: offset, Size: size}, rest, nil
}

// sectionIndex is the ordered list of section descriptors: a u32 count
// followed by that many fixed-width descriptors (spec.md §4.3).
type sectionIndex struct {
	entries []sectionDescriptor
}

func (si *sectionIndex) marshal() []byte {
	buf := make([]byte, 0, 4+len(si.entries)*sectionDescSize)
	buf = putUint32(buf, uint32(len(si.entries)))
	for _, e := range si.entries {
		buf = append(buf, e.marshal()...)
	}
	return buf
}

func unmarshalSectionIndex(buf []byte) (*sectionIndex, error) {
	count, rest, err := readUint32(buf)
	if err != nil {
		return nil, err
	}
	si := &sectionIndex{entries: make([]sectionDescriptor, 0, count)}
	for i := uint32(0); i < count; i++ {
		var d sectionDescriptor
		d, rest, err = unmarshalSectionDescriptor(rest)
		if err != nil {
			return nil, err
		}
		si.entries = append(si.entries, d)
	}
	return si, nil
}

// byKind returns the index (within entries) of the first descriptor with
// the given kind, or -1.
func (si *sectionIndex) byKind(k SectionKind) int {
	for i, e := range si.entries {
		if e.Kind == k {
			return i
		}
	}
	return -1
}

// allByKind returns the indices of every descriptor with the given kind, in
// section-index order.
func (si *sectionIndex) allByKind(k SectionKind) []int {
	var out []int
	for i, e := range si.entries {
		if e.Kind == k {
			out = append(out, i)
		}
	}
	return out
}

// --- Section body codecs ---

// packageSectionBody is the wire body of KindPackageSection.
type packageSectionBody struct {
	Name, Version, License stringRef
	Authors                []stringRef
}

func (b packageSectionBody) marshal() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, b.Name.marshal()...)
	buf = append(buf, b.Version.marshal()...)
	buf = append(buf, b.License.marshal()...)
	buf = putUint32(buf, uint32(len(b.Authors)))
	for _, a := range b.Authors {
		buf = append(buf, a.marshal()...)
	}
	return buf
}

func unmarshalPackageSectionBody(buf []byte) (packageSectionBody, error) {
	var b packageSectionBody
	var err error
	b.Name, buf, err = unmarshalStringRef(buf)
	if err != nil {
		return b, err
	}
	b.Version, buf, err = unmarshalStringRef(buf)
	if err != nil {
		return b, err
	}
	b.License, buf, err = unmarshalStringRef(buf)
	if err != nil {
		return b, err
	}
	count, buf, err := readUint32(buf)
	if err != nil {
		return b, err
	}
	b.Authors = make([]stringRef, 0, count)
	for i := uint32(0); i < count; i++ {
		var ref stringRef
		ref, buf, err = unmarshalStringRef(buf)
		if err != nil {
			return b, err
		}
		b.Authors = append(b.Authors, ref)
	}
	return b, nil
}

// DepSourceKind discriminates a dependency's source, mirroring the
// original's SrcTypePath discriminant.
type DepSourceKind uint8

const (
	DepSourceCratesIo  DepSourceKind = 0
	DepSourceGit       DepSourceKind = 1
	DepSourceURL       DepSourceKind = 2
	DepSourceRegistry  DepSourceKind = 3
	DepSourcePeerToPeer DepSourceKind = 4
)

func (k DepSourceKind) valid() bool {
	return k <= DepSourcePeerToPeer
}

// depRecordBody is the wire body of a single DepTableSection entry.
type depRecordBody struct {
	Name, VersionReq stringRef
	SourceKind       DepSourceKind
	SourceParam      stringRef // unused for CratesIo
	HasPlatform      bool
	Platform         stringRef
}

func (r depRecordBody) marshal() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, r.Name.marshal()...)
	buf = append(buf, r.VersionReq.marshal()...)
	buf = putUint8(buf, uint8(r.SourceKind))
	buf = append(buf, r.SourceParam.marshal()...)
	hasPlatform := uint8(0)
	if r.HasPlatform {
		hasPlatform = 1
	}
	buf = putUint8(buf, hasPlatform)
	buf = append(buf, r.Platform.marshal()...)
	return buf
}

func unmarshalDepRecordBody(buf []byte) (depRecordBody, []byte, error) {
	var r depRecordBody
	var err error
	r.Name, buf, err = unmarshalStringRef(buf)
	if err != nil {
		return r, nil, err
	}
	r.VersionReq, buf, err = unmarshalStringRef(buf)
	if err != nil {
		return r, nil, err
	}
	kind, buf, err := readUint8(buf)
	if err != nil {
		return r, nil, err
	}
	r.SourceKind = DepSourceKind(kind)
	if !r.SourceKind.valid() {
		return r, nil, newErr(KindMalformedInput, "unknown dependency source kind")
	}
	r.SourceParam, buf, err = unmarshalStringRef(buf)
	if err != nil {
		return r, nil, err
	}
	hasPlatform, buf, err := readUint8(buf)
	if err != nil {
		return r, nil, err
	}
	r.HasPlatform = hasPlatform != 0
	r.Platform, buf, err = unmarshalStringRef(buf)
	if err != nil {
		return r, nil, err
	}
	return r, buf, nil
}

// depTableSectionBody is the wire body of KindDepTableSection: a count
// followed by that many depRecordBody entries.
type depTableSectionBody struct {
	Records []depRecordBody
}

func (b depTableSectionBody) marshal() []byte {
	buf := make([]byte, 0, 4+len(b.Records)*48)
	buf = putUint32(buf, uint32(len(b.Records)))
	for _, r := range b.Records {
		buf = append(buf, r.marshal()...)
	}
	return buf
}

func unmarshalDepTableSectionBody(buf []byte) (depTableSectionBody, error) {
	count, buf, err := readUint32(buf)
	if err != nil {
		return depTableSectionBody{}, err
	}
	b := depTableSectionBody{Records: make([]depRecordBody, 0, count)}
	for i := uint32(0); i < count; i++ {
		var r depRecordBody
		r, buf, err = unmarshalDepRecordBody(buf)
		if err != nil {
			return depTableSectionBody{}, err
		}
		b.Records = append(b.Records, r)
	}
	return b, nil
}

// SigType discriminates a signature's covered region (spec.md §3).
type SigType uint8

const (
	// SigTypeFile covers the entire file minus signature bodies, the
	// section index, and the trailing fingerprint.
	SigTypeFile SigType = 0
	// SigTypeCrateBin covers only the CrateBinarySection body.
	SigTypeCrateBin SigType = 1
)

func (t SigType) valid() bool {
	return t == SigTypeFile || t == SigTypeCrateBin
}

func (t SigType) String() string {
	if t == SigTypeFile {
		return "FILE"
	}
	return "CRATEBIN"
}

// sigStructureSectionBody is the wire body of one KindSigStructureSection:
// the signature's type, the signer certificate (DER), and the signed
// payload (a PKCS#7-family SignedData whose encapsulated content is the
// SHA-256 digest of the covered region).
type sigStructureSectionBody struct {
	Type           SigType
	SignerCert     []byte
	SignedPayload  []byte
}

func (b sigStructureSectionBody) marshal() []byte {
	buf := make([]byte, 0, 8+len(b.SignerCert)+len(b.SignedPayload))
	buf = putUint8(buf, uint8(b.Type))
	buf = putLenPrefixed(buf, b.SignerCert)
	buf = putLenPrefixed(buf, b.SignedPayload)
	return buf
}

func unmarshalSigStructureSectionBody(buf []byte) (sigStructureSectionBody, error) {
	typ, buf, err := readUint8(buf)
	if err != nil {
		return sigStructureSectionBody{}, err
	}
	b := sigStructureSectionBody{Type: SigType(typ)}
	if !b.Type.valid() {
		return sigStructureSectionBody{}, newErr(KindMalformedInput, "unknown signature type")
	}
	b.SignerCert, buf, err = readLenPrefixed(buf)
	if err != nil {
		return sigStructureSectionBody{}, err
	}
	b.SignedPayload, buf, err = readLenPrefixed(buf)
	if err != nil {
		return sigStructureSectionBody{}, err
	}
	return b, nil
}
