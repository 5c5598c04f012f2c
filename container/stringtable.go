package container

import (
	"sort"
	"unicode/utf8"
)

// StringTable is the interning store for every UTF-8 string referenced by
// package-info and dependency records. Downstream records carry
// (offset, length) references into the serialized table rather than
// embedding their own copies, so a string repeated across many dependency
// records is stored exactly once (spec.md §4.2).
type StringTable struct {
	strToOffset map[string]uint32
	offToStr    map[uint32]string
	totalBytes  uint32
}

// NewStringTable returns an empty table. The empty string is interned first
// so offset 0 is always a valid (if unused) reference, mirroring the
// original implementation's convention.
func NewStringTable() *StringTable {
	t := &StringTable{
		strToOffset: make(map[string]uint32),
		offToStr:    make(map[uint32]string),
	}
	t.Intern("")
	return t
}

// Intern assigns (or returns the existing) stable offset for s. Two interns
// of equal strings return equal references.
func (t *StringTable) Intern(s string) stringRef {
	if off, ok := t.strToOffset[s]; ok {
		return stringRef{Offset: off, Length: uint32(len(s))}
	}
	off := t.totalBytes
	t.strToOffset[s] = off
	t.offToStr[off] = s
	// On disk each string is stored as a 4-byte little-endian length prefix
	// followed by its bytes; totalBytes tracks the cumulative serialized size.
	t.totalBytes += 4 + uint32(len(s))
	return stringRef{Offset: off, Length: uint32(len(s))}
}

// Contains reports whether s has already been interned.
func (t *StringTable) Contains(s string) bool {
	_, ok := t.strToOffset[s]
	return ok
}

// Resolve validates bounds and returns the string at (offset, length).
func (t *StringTable) Resolve(ref stringRef) (string, error) {
	s, ok := t.offToStr[ref.Offset]
	if !ok {
		return "", newErr(KindMalformedInput, "string reference points outside interned table")
	}
	if uint32(len(s)) != ref.Length {
		return "", newErr(KindMalformedInput, "string reference length mismatch")
	}
	return s, nil
}

// Bytes serializes the table as the concatenation of distinct strings, each
// length-prefixed, in order of first interning (ascending offset).
func (t *StringTable) Bytes() []byte {
	offsets := make([]uint32, 0, len(t.offToStr))
	for off := range t.offToStr {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	buf := make([]byte, 0, t.totalBytes)
	for _, off := range offsets {
		s := t.offToStr[off]
		buf = putLenPrefixed(buf, []byte(s))
	}
	return buf
}

// ReadStringTable parses a serialized string table back into offset/string
// maps, validating that every string is valid UTF-8.
func ReadStringTable(buf []byte) (*StringTable, error) {
	t := &StringTable{
		strToOffset: make(map[string]uint32),
		offToStr:    make(map[uint32]string),
	}
	off := uint32(0)
	rest := buf
	for len(rest) > 0 {
		data, tail, err := readLenPrefixed(rest)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(data) {
			return nil, newErrAt(KindMalformedInput, int64(off), "string table entry is not valid UTF-8")
		}
		s := string(data)
		t.strToOffset[s] = off
		t.offToStr[off] = s
		consumed := uint32(4 + len(data))
		off += consumed
		rest = tail
	}
	t.totalBytes = off
	return t, nil
}
