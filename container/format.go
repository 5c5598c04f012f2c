package container

import "encoding/binary"

// Magic is the fixed 5-byte literal that opens every signed package.
var Magic = [5]byte{'C', 'R', 'A', 'T', 'E'}

const (
	// CurrentVersion is the only header version this decoder accepts.
	// A bumped version is the sole signal of an incompatible layout; there
	// is no forward-compatibility story (see spec.md §9).
	CurrentVersion uint16 = 1

	// FingerprintSize is the width of the trailing SHA-256 integrity digest.
	FingerprintSize = 32

	// headerSize is the fixed on-disk size of the Header struct below:
	// version(2) + 3 × (offset(8) + size(8)).
	headerSize = 2 + 3*(8+8)

	// stringRefSize is the on-disk size of a (offset, length) string reference.
	stringRefSize = 4 + 4

	// sectionDescSize is the on-disk size of one section index descriptor:
	// kind(4) + offset(8) + size(8).
	sectionDescSize = 4 + 8 + 8
)

// Header describes the byte ranges of the three variable-length top-level
// regions that follow it: the string table, the section index, and the
// concatenated data sections. All offsets are absolute, measured from the
// start of the file.
type Header struct {
	Version        uint16
	StrTabOffset   uint64
	StrTabSize     uint64
	IndexOffset    uint64
	IndexSize      uint64
	SectionsOffset uint64
	SectionsSize   uint64
}

func (h *Header) marshal() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.Version)
	binary.LittleEndian.PutUint64(buf[2:10], h.StrTabOffset)
	binary.LittleEndian.PutUint64(buf[10:18], h.StrTabSize)
	binary.LittleEndian.PutUint64(buf[18:26], h.IndexOffset)
	binary.LittleEndian.PutUint64(buf[26:34], h.IndexSize)
	binary.LittleEndian.PutUint64(buf[34:42], h.SectionsOffset)
	binary.LittleEndian.PutUint64(buf[42:50], h.SectionsSize)
	return buf
}

func unmarshalHeader(buf []byte) (*Header, error) {
	if len(buf) < headerSize {
		return nil, newErrAt(KindMalformedHeader, int64(len(Magic)), "header truncated")
	}
	h := &Header{
		Version:        binary.LittleEndian.Uint16(buf[0:2]),
		StrTabOffset:   binary.LittleEndian.Uint64(buf[2:10]),
		StrTabSize:     binary.LittleEndian.Uint64(buf[10:18]),
		IndexOffset:    binary.LittleEndian.Uint64(buf[18:26]),
		IndexSize:      binary.LittleEndian.Uint64(buf[26:34]),
		SectionsOffset: binary.LittleEndian.Uint64(buf[34:42]),
		SectionsSize:   binary.LittleEndian.Uint64(buf[42:50]),
	}
	return h, nil
}

// stringRef is a (offset, length) reference into the string table.
type stringRef struct {
	Offset uint32
	Length uint32
}

func (r stringRef) marshal() []byte {
	buf := make([]byte, stringRefSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.Offset)
	binary.LittleEndian.PutUint32(buf[4:8], r.Length)
	return buf
}

func unmarshalStringRef(buf []byte) (stringRef, []byte, error) {
	if len(buf) < stringRefSize {
		return stringRef{}, nil, newErr(KindMalformedInput, "truncated string reference")
	}
	r := stringRef{
		Offset: binary.LittleEndian.Uint32(buf[0:4]),
		Length: binary.LittleEndian.Uint32(buf[4:8]),
	}
	return r, buf[stringRefSize:], nil
}

// putUint32 / putUint64 / readers are small helpers kept local to this
// package so every section codec speaks the same fixed-width little-endian
// primitives (spec.md §4.1).

func putUint32(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}

func putUint64(buf []byte, v uint64) []byte {
	tmp := make([]byte, 8)
	binary.LittleEndian.PutUint64(tmp, v)
	return append(buf, tmp...)
}

func putUint8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

func putLenPrefixed(buf []byte, data []byte) []byte {
	buf = putUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func readUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, newErr(KindMalformedInput, "truncated u32")
	}
	return binary.LittleEndian.Uint32(buf[:4]), buf[4:], nil
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, newErr(KindMalformedInput, "truncated u64")
	}
	return binary.LittleEndian.Uint64(buf[:8]), buf[8:], nil
}

func readUint8(buf []byte) (uint8, []byte, error) {
	if len(buf) < 1 {
		return 0, nil, newErr(KindMalformedInput, "truncated u8")
	}
	return buf[0], buf[1:], nil
}

func readLenPrefixed(buf []byte) ([]byte, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, nil, newErr(KindMalformedInput, "length prefix exceeds remaining bytes")
	}
	return rest[:n], rest[n:], nil
}
