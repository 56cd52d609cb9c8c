// Package verify runs certificate checks with a three-valued outcome:
// a check that cannot be attempted reports Unknown instead of failing.
// Checks are independent; one failing never hides another.
package verify

import (
	"fmt"
	"time"

	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// Verdict is the outcome of one check.
type Verdict int

const (
	VerdictFalse Verdict = iota
	VerdictTrue
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictTrue:
		return "true"
	case VerdictFalse:
		return "false"
	}
	return "unknown"
}

// CheckResult is one named check with its verdict and detail text.
type CheckResult struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"-"`
	State   string  `json:"state"`
	Detail  string  `json:"detail,omitempty"`
}

// Result aggregates all checks for one certificate.
type Result struct {
	Checks []CheckResult `json:"checks"`
	Errors []string      `json:"errors,omitempty"`
}

// OK reports whether every check came out true.
func (r *Result) OK() bool {
	for _, c := range r.Checks {
		if c.Verdict != VerdictTrue {
			return false
		}
	}
	return true
}

func (r *Result) add(name string, v Verdict, detail string) {
	r.Checks = append(r.Checks, CheckResult{Name: name, Verdict: v, State: v.String(), Detail: detail})
	if v != VerdictTrue && detail != "" {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", name, detail))
	}
}

// Options configures a verification run.
type Options struct {
	// At is the evaluation instant; zero means the engine clock.
	At time.Time

	// Bundle is the optional trust material for the issuer and chain
	// checks. Without it those checks report Unknown.
	Bundle []*x509util.Certificate
}

const maxChainDepth = 8

// Certificate runs the time, signature and chain checks. Every check
// always runs; no result short-circuits another.
func Certificate(eng *engine.Engine, cert *x509util.Certificate, opts Options) *Result {
	r := &Result{}

	at := opts.At
	if at.IsZero() {
		at = eng.Now()
	}
	checkTime(r, cert, at)
	checkSignature(r, cert, opts.Bundle)
	checkChain(r, cert, opts.Bundle, at)
	return r
}

func checkTime(r *Result, cert *x509util.Certificate, at time.Time) {
	switch {
	case at.Before(cert.NotBefore):
		r.add("validity-period", VerdictFalse, fmt.Sprintf("not valid before %s", cert.NotBefore.UTC().Format(time.RFC3339)))
	case at.After(cert.NotAfter):
		r.add("validity-period", VerdictFalse, fmt.Sprintf("expired %s", cert.NotAfter.UTC().Format(time.RFC3339)))
	default:
		r.add("validity-period", VerdictTrue, "")
	}
}

// checkSignature verifies the leaf signature: against the certificate's
// own key when self-issued, against a bundle candidate otherwise.
func checkSignature(r *Result, cert *x509util.Certificate, bundle []*x509util.Certificate) {
	var signer *x509util.Certificate
	if cert.Subject.Equal(cert.Issuer) {
		signer = cert
	} else {
		signer = findIssuer(cert, bundle)
		if signer == nil {
			r.add("signature", VerdictUnknown, "issuer certificate not available")
			return
		}
	}
	v, detail := verifyLink(cert, signer)
	r.add("signature", v, detail)
}

// checkChain walks issuer links through the bundle. The walk succeeds
// at a self-signed certificate that verifies itself, or at the topmost
// reachable certificate once at least one link into the bundle has
// verified: a trust anchor need not be self-signed. Time validity of
// intermediates is checked along the way.
func checkChain(r *Result, cert *x509util.Certificate, bundle []*x509util.Certificate, at time.Time) {
	if len(bundle) == 0 {
		r.add("chain", VerdictUnknown, "no trust bundle supplied")
		return
	}

	current := cert
	for depth := 0; depth < maxChainDepth; depth++ {
		if current.Subject.Equal(current.Issuer) {
			if v, detail := verifyLink(current, current); v != VerdictTrue {
				r.add("chain", v, fmt.Sprintf("root %q: %s", current.Subject.String(), detail))
				return
			}
			r.add("chain", VerdictTrue, "")
			return
		}

		issuer := findIssuer(current, bundle)
		if issuer == nil {
			// depth > 0 means current is itself a bundle entry and the
			// link into it already verified.
			if depth > 0 {
				r.add("chain", VerdictTrue, "")
				return
			}
			r.add("chain", VerdictFalse, fmt.Sprintf("no issuer for %q in bundle", current.Subject.String()))
			return
		}
		if at.Before(issuer.NotBefore) || at.After(issuer.NotAfter) {
			r.add("chain", VerdictFalse, fmt.Sprintf("issuer %q outside its validity period", issuer.Subject.String()))
			return
		}
		if v, detail := verifyLink(current, issuer); v != VerdictTrue {
			r.add("chain", v, fmt.Sprintf("link to %q: %s", issuer.Subject.String(), detail))
			return
		}
		current = issuer
	}
	r.add("chain", VerdictFalse, "chain too deep")
}

func findIssuer(cert *x509util.Certificate, bundle []*x509util.Certificate) *x509util.Certificate {
	for _, cand := range bundle {
		if cand.Subject.Equal(cert.Issuer) {
			return cand
		}
	}
	return nil
}

// verifyLink checks cert's signature against the signer's public key.
// An unknown algorithm OID, an unparseable signer key or a key family
// the toolkit cannot verify with all yield Unknown, not False.
func verifyLink(cert, signer *x509util.Certificate) (Verdict, string) {
	alg, ok := x509util.SignatureAlgorithmByOID(cert.SignatureOID)
	if !ok {
		return VerdictUnknown, fmt.Sprintf("unsupported signature algorithm %s", cert.SignatureOID.String())
	}
	if signer.PublicKey == nil {
		return VerdictUnknown, fmt.Sprintf("signer key unusable: %v", signer.PublicKeyErr)
	}
	if signer.PublicKey.Family != alg.Family {
		return VerdictFalse, fmt.Sprintf("signature algorithm %s does not match signer key %s", alg.Name, signer.PublicKey.Family)
	}

	ok, err := keys.Verify(signer.PublicKey, alg.Hash, cert.RawTBS, cert.Signature)
	if err != nil {
		return VerdictUnknown, fmt.Sprintf("verification unavailable: %v", err)
	}
	if !ok {
		return VerdictFalse, "signature does not verify"
	}
	return VerdictTrue, ""
}

// Request checks a certification request's self-signature.
func Request(req *x509util.CertificateRequest) *Result {
	r := &Result{}
	alg, ok := x509util.SignatureAlgorithmByOID(req.SignatureOID)
	if !ok {
		r.add("signature", VerdictUnknown, fmt.Sprintf("unsupported signature algorithm %s", req.SignatureOID.String()))
		return r
	}
	if req.PublicKey == nil {
		r.add("signature", VerdictUnknown, fmt.Sprintf("request key unusable: %v", req.PublicKeyErr))
		return r
	}
	if req.PublicKey.Family != alg.Family {
		r.add("signature", VerdictFalse, "signature algorithm does not match request key")
		return r
	}
	ok, err := keys.Verify(req.PublicKey, alg.Hash, req.RawInfo, req.Signature)
	switch {
	case err != nil:
		r.add("signature", VerdictUnknown, fmt.Sprintf("verification unavailable: %v", err))
	case !ok:
		r.add("signature", VerdictFalse, "signature does not verify")
	default:
		r.add("signature", VerdictTrue, "")
	}
	return r
}
