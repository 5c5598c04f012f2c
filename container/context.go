package container

import (
	"crypto"
	"crypto/x509"

	"github.com/LeeLiangmin/crate-spec/container/signatures"
)

// PackageInfo is the package-identity record (spec.md §3, PackageSection).
type PackageInfo struct {
	Name    string
	Version string
	License string
	Authors []string
}

// DepInfo is a single dependency record (spec.md §3, DepTableSection).
// SourceKind discriminates which of the mutually-exclusive source fields
// is meaningful: CratesIo carries no SourceParam; Git/URL/Registry/P2p
// carry it as the repository URL, archive URL, registry name, or peer
// identifier respectively.
type DepInfo struct {
	Name        string
	VersionReq  string
	SourceKind  DepSourceKind
	SourceParam string
	Platform    *string // optional platform predicate, carried through verbatim
}

// SigSlot is a pending or materialized signature: its coverage type, the
// signer's certificate, and either the key material to sign with (encode
// path) or the signed payload bytes read from the package (decode path).
type SigSlot struct {
	Type       SigType
	Cert       *x509.Certificate
	Key        crypto.Signer // nil on the decode path
	Payload    []byte        // set by the decoder; Encode does not write it back into the slot
}

// Context is the in-memory, on-disk-layout-independent representation of a
// signed package (spec.md §3, "Package context (in-memory)"). It is
// immutable after construction except for AddSignature during encode.
type Context struct {
	Info        PackageInfo
	Deps        []DepInfo
	CrateBinary []byte
	Sigs        []SigSlot
	Roots       *x509.CertPool // used only on the decode path
	Adapter     signatures.CryptoAdapter
}

// NewContext returns an empty package context using the local PKCS#7
// adapter by default (spec.md §4.4 names this the reference
// implementation; callers building a remote-signing context construct
// Context directly and set Adapter to a network.RemoteAdapter instead).
func NewContext() *Context {
	return &Context{Adapter: signatures.NewLocalAdapter()}
}

// SetPackageInfo sets the package-identity record.
func (c *Context) SetPackageInfo(info PackageInfo) { c.Info = info }

// AddDep appends a dependency record.
func (c *Context) AddDep(dep DepInfo) { c.Deps = append(c.Deps, dep) }

// DepCount returns the number of dependency records.
func (c *Context) DepCount() int { return len(c.Deps) }

// SetCrateBinary sets the opaque inner-package bytes.
func (c *Context) SetCrateBinary(b []byte) { c.CrateBinary = b }

// AddSignature configures a pending signature slot for the encode path and
// returns its index. typ selects the covered region; cert/key are the
// signer's certificate and private key (or a crypto.Signer proxying a
// remote signing operation, e.g. network.RemoteSigner).
func (c *Context) AddSignature(typ SigType, cert *x509.Certificate, key crypto.Signer) int {
	c.Sigs = append(c.Sigs, SigSlot{Type: typ, Cert: cert, Key: key})
	return len(c.Sigs) - 1
}

// SigCount returns the number of signature slots.
func (c *Context) SigCount() int { return len(c.Sigs) }

// SetRoots sets the trusted root pool used only for decode-path verification.
func (c *Context) SetRoots(roots *x509.CertPool) { c.Roots = roots }
