package signatures

import (
	"crypto/x509"
	"fmt"
)

// TrustStore manages the set of root certificates a decoder trusts.
type TrustStore struct {
	roots *x509.CertPool
}

// NewTrustStore returns an empty trust store.
func NewTrustStore() *TrustStore {
	return &TrustStore{roots: x509.NewCertPool()}
}

// AddCertificate adds a trusted root certificate.
func (ts *TrustStore) AddCertificate(cert *x509.Certificate) {
	ts.roots.AddCert(cert)
}

// AddCertificatePEM adds one or more trusted roots from PEM-encoded data.
func (ts *TrustStore) AddCertificatePEM(pemData []byte) error {
	if !ts.roots.AppendCertsFromPEM(pemData) {
		return fmt.Errorf("failed to parse PEM certificate")
	}
	return nil
}

// Pool returns the underlying certificate pool for use in x509.VerifyOptions.
func (ts *TrustStore) Pool() *x509.CertPool {
	return ts.roots
}
