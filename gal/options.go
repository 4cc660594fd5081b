package gal

import (
	"crypto"
	"crypto/x509"

	"github.com/galang-lang/gal/internal/gallog"
	"github.com/galang-lang/gal/internal/galsign"
)

type signer struct {
	cert *x509.Certificate
	key  crypto.Signer
}

// Options configures a VM at construction time (spec §6.3).
type Options struct {
	noStdlib bool
	onPanic  func(error)
	verifier *galsign.Verifier
	signer   *signer
	logger   gallog.Logger
}

func defaultOptions() Options {
	return Options{logger: gallog.Discard}
}

// Option mutates Options; New applies them in order.
type Option func(*Options)

// WithoutStdlib skips registering assert/math/bits/string/table/raw/vector
// builtins, for embedders that want a bare sandbox.
func WithoutStdlib() Option {
	return func(o *Options) { o.noStdlib = true }
}

// WithPanicHandler installs a callback invoked with any runtime error
// recovered from a Call/Resume (spec §6.3's panic callback).
func WithPanicHandler(fn func(error)) Option {
	return func(o *Options) { o.onPanic = fn }
}

// WithSignatureVerification requires every chunk loaded via LoadBytecode to
// carry a detached signature verifying against roots (spec §7's "signed
// chunk" trust requirement). A nil roots pool accepts any well-formed
// PKCS#7 signature without chain validation.
func WithSignatureVerification(roots *x509.CertPool) Option {
	return func(o *Options) { o.verifier = galsign.NewVerifier(roots) }
}

// WithSigning configures Dump to produce signed chunks under cert/key.
func WithSigning(cert *x509.Certificate, key crypto.Signer) Option {
	return func(o *Options) { o.signer = &signer{cert: cert, key: key} }
}

// WithLogger routes the VM's structured diagnostics (load/compile errors,
// GC sweeps, coroutine faults) to l instead of discarding them.
func WithLogger(l gallog.Logger) Option {
	return func(o *Options) { o.logger = l }
}
