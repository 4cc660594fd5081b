// Package galsign signs and verifies serialized GAL chunks with detached
// PKCS#7 signatures (SPEC_FULL §4/§7), the same signature format the
// teacher's security.go parses for Authenticode certificates, reused here
// to attest chunk provenance instead of PE executables.
package galsign

import (
	"crypto"
	"crypto/x509"
	"errors"

	"go.mozilla.org/pkcs7"
)

var (
	// ErrNoSignature is returned by Verify when asked to check a chunk that
	// carries no signature block.
	ErrNoSignature = errors.New("galsign: chunk carries no signature")
	// ErrVerificationFailed wraps any failure of the embedded PKCS7 chain
	// or digest check.
	ErrVerificationFailed = errors.New("galsign: signature verification failed")
)

// Verifier holds the trust roots a loader checks signed chunks against.
// A nil *Verifier means "don't check signatures" and Deserialize accepts
// both signed and unsigned chunks without validating the signature.
type Verifier struct {
	Roots *x509.CertPool
}

// NewVerifier builds a Verifier trusting the given root pool.
func NewVerifier(roots *x509.CertPool) *Verifier {
	return &Verifier{Roots: roots}
}

// Sign produces a detached PKCS#7 SignedData blob over body, signed by key
// under cert. The resulting bytes are appended to a chunk by
// code.Serialize's caller, not by Sign itself.
func Sign(body []byte, cert *x509.Certificate, key crypto.Signer) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(body)
	if err != nil {
		return nil, err
	}
	if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, err
	}
	sd.Detach()
	return sd.Finish()
}

// Verify checks a detached PKCS#7 signature over body against v's trust
// roots. A nil Verifier always succeeds (signature checking is off).
func (v *Verifier) Verify(body, sig []byte) error {
	if v == nil {
		return nil
	}
	if len(sig) == 0 {
		return ErrNoSignature
	}
	p7, err := pkcs7.Parse(sig)
	if err != nil {
		return ErrVerificationFailed
	}
	p7.Content = body
	if v.Roots != nil {
		if _, err := p7.VerifyWithChain(v.Roots); err != nil {
			return ErrVerificationFailed
		}
		return nil
	}
	if err := p7.Verify(); err != nil {
		return ErrVerificationFailed
	}
	return nil
}
