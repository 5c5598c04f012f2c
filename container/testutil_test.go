package container

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

func generateTestRootCA(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-24 * time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert, priv
}

func generateTestSignerCert(t *testing.T, rootCert *x509.Certificate, rootKey *rsa.PrivateKey, serial int64) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: "Test Package Signer"},
		NotBefore:             time.Now().Add(-24 * time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, rootCert, &priv.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert, priv
}

// newTestContext builds a minimal, valid package context: name "demo",
// version "0.1.0", license "MIT", one author, no dependencies, the given
// inner-package bytes, and one signature slot of the given type signed by
// a freshly generated certificate chaining to a freshly generated root.
// It returns the context and the pool containing that root.
func newTestContext(t *testing.T, crateBinary []byte, sigType SigType) (*Context, *x509.CertPool) {
	t.Helper()

	rootCert, rootKey := generateTestRootCA(t)
	signerCert, signerKey := generateTestSignerCert(t, rootCert, rootKey, 2)

	ctx := NewContext()
	ctx.SetPackageInfo(PackageInfo{Name: "demo", Version: "0.1.0", License: "MIT", Authors: []string{"a@b"}})
	ctx.SetCrateBinary(crateBinary)
	ctx.AddSignature(sigType, signerCert, signerKey)

	roots := x509.NewCertPool()
	roots.AddCert(rootCert)
	return ctx, roots
}
