package container

import "testing"

func TestPackageSectionBody_RoundTrip(t *testing.T) {
	st := NewStringTable()
	body := packageSectionBody{
		Name:    st.Intern("demo"),
		Version: st.Intern("0.1.0"),
		License: st.Intern("MIT"),
		Authors: []stringRef{st.Intern("a@b")},
	}

	raw := body.marshal()
	got, err := unmarshalPackageSectionBody(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.Name != body.Name || got.Version != body.Version || got.License != body.License {
		t.Errorf("got %+v, want %+v", got, body)
	}
	if len(got.Authors) != 1 || got.Authors[0] != body.Authors[0] {
		t.Errorf("authors mismatch: got %+v", got.Authors)
	}
}

func TestDepTableSectionBody_EmptyIsValid(t *testing.T) {
	body := depTableSectionBody{}
	raw := body.marshal()

	got, err := unmarshalDepTableSectionBody(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(got.Records) != 0 {
		t.Errorf("expected zero records, got %d", len(got.Records))
	}
}

func TestDepRecordBody_RoundTrip(t *testing.T) {
	st := NewStringTable()
	platform := st.Intern("cfg(unix)")
	rec := depRecordBody{
		Name:        st.Intern("lib_b"),
		VersionReq:  st.Intern("0.2"),
		SourceKind:  DepSourceGit,
		SourceParam: st.Intern("https://example.com/lib_b.git"),
		HasPlatform: true,
		Platform:    platform,
	}

	raw := rec.marshal()
	got, rest, err := unmarshalDepRecordBody(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("expected no trailing bytes, got %d", len(rest))
	}
	if got.SourceKind != DepSourceGit || !got.HasPlatform {
		t.Errorf("got %+v", got)
	}
}

func TestDepRecordBody_UnknownSourceKindRejected(t *testing.T) {
	st := NewStringTable()
	rec := depRecordBody{Name: st.Intern("x"), VersionReq: st.Intern("1"), SourceKind: 99}
	raw := rec.marshal()

	if _, _, err := unmarshalDepRecordBody(raw); err == nil {
		t.Fatal("expected an error for an unknown dependency source kind")
	}
}

func TestSigStructureSectionBody_RoundTrip(t *testing.T) {
	body := sigStructureSectionBody{
		Type:          SigTypeCrateBin,
		SignerCert:    []byte{1, 2, 3},
		SignedPayload: []byte{4, 5, 6, 7},
	}
	raw := body.marshal()

	got, err := unmarshalSigStructureSectionBody(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.Type != body.Type {
		t.Errorf("got type %v, want %v", got.Type, body.Type)
	}
	if string(got.SignerCert) != string(body.SignerCert) || string(got.SignedPayload) != string(body.SignedPayload) {
		t.Errorf("payload mismatch: got %+v", got)
	}
}

func TestSigStructureSectionBody_UnknownTypeRejected(t *testing.T) {
	body := sigStructureSectionBody{Type: SigType(7), SignerCert: []byte{1}, SignedPayload: []byte{2}}
	raw := body.marshal()

	if _, err := unmarshalSigStructureSectionBody(raw); err == nil {
		t.Fatal("expected an error for an unknown signature type")
	}
}

func TestSectionIndex_RoundTrip(t *testing.T) {
	si := &sectionIndex{entries: []sectionDescriptor{
		{Kind: KindPackageSection, Offset: 100, Size: 20},
		{Kind: KindDepTableSection, Offset: 120, Size: 0},
		{Kind: KindCrateBinarySection, Offset: 120, Size: 8},
		{Kind: KindSigStructureSection, Offset: 128, Size: 300},
	}}

	raw := si.marshal()
	got, err := unmarshalSectionIndex(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(got.entries) != len(si.entries) {
		t.Fatalf("got %d entries, want %d", len(got.entries), len(si.entries))
	}
	for i := range si.entries {
		if got.entries[i] != si.entries[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got.entries[i], si.entries[i])
		}
	}

	if idx := got.byKind(KindPackageSection); idx != 0 {
		t.Errorf("byKind(PackageSection) = %d, want 0", idx)
	}
	if idx := got.byKind(kindReserved); idx != -1 {
		t.Errorf("byKind(reserved) = %d, want -1", idx)
	}
}

func TestSectionKind_Known(t *testing.T) {
	for _, k := range []SectionKind{KindPackageSection, KindDepTableSection, KindCrateBinarySection, KindSigStructureSection} {
		if !k.known() {
			t.Errorf("expected %v to be known", k)
		}
	}
	if kindReserved.known() {
		t.Error("expected the reserved kind to never be known")
	}
	if SectionKind(42).known() {
		t.Error("expected an arbitrary unknown kind to be unknown")
	}
}
