// Package x509util builds and parses the fixed set of ASN.1 structures
// the certificate toolkit produces and consumes: SubjectPublicKeyInfo,
// X.509 extensions, TBSCertificate, Certificate and CertificationRequest.
// It assembles DER by hand where the families involved (DSA, DH, Ed448,
// non-NIST curves) fall outside what crypto/x509 supports.
package x509util

import (
	"encoding/asn1"
)

// Standard X.509 extension OIDs.
var (
	// Key Usage extension
	OIDExtKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 15}

	// Extended Key Usage extension
	OIDExtExtKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37}

	// Basic Constraints extension
	OIDExtBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}

	// Subject Alternative Name extension
	OIDExtSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

	// Authority Key Identifier extension
	OIDExtAuthorityKeyId = asn1.ObjectIdentifier{2, 5, 29, 35}

	// Subject Key Identifier extension
	OIDExtSubjectKeyId = asn1.ObjectIdentifier{2, 5, 29, 14}
)

// PKCS#10 attribute OIDs.
var (
	// OIDExtensionRequest is the PKCS#9 extensionRequest attribute
	// carrying requested extensions inside a CSR.
	OIDExtensionRequest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 14}
)

// Extended Key Usage OIDs.
var (
	OIDEKUServerAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	OIDEKUClientAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	OIDEKUCodeSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 3}
	OIDEKUEmailProtection = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 4}
	OIDEKUTimeStamping    = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}
	OIDEKUOCSPSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
	OIDEKUAny             = asn1.ObjectIdentifier{2, 5, 29, 37, 0}
)

// OIDEqual compares two OIDs.
func OIDEqual(a, b asn1.ObjectIdentifier) bool {
	return a.Equal(b)
}

// extensionName returns the symbolic name for a known extension OID, or
// the dotted form otherwise.
func extensionName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(OIDExtKeyUsage):
		return "keyUsage"
	case oid.Equal(OIDExtExtKeyUsage):
		return "extKeyUsage"
	case oid.Equal(OIDExtBasicConstraints):
		return "basicConstraints"
	case oid.Equal(OIDExtSubjectAltName):
		return "subjectAltName"
	case oid.Equal(OIDExtSubjectKeyId):
		return "subjectKeyIdentifier"
	case oid.Equal(OIDExtAuthorityKeyId):
		return "authorityKeyIdentifier"
	}
	return oid.String()
}

// ekuName returns the symbolic name for an extended-key-usage OID.
func ekuName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(OIDEKUServerAuth):
		return "serverAuth"
	case oid.Equal(OIDEKUClientAuth):
		return "clientAuth"
	case oid.Equal(OIDEKUCodeSigning):
		return "codeSigning"
	case oid.Equal(OIDEKUEmailProtection):
		return "emailProtection"
	case oid.Equal(OIDEKUTimeStamping):
		return "timeStamping"
	case oid.Equal(OIDEKUOCSPSigning):
		return "ocspSigning"
	case oid.Equal(OIDEKUAny):
		return "any"
	}
	return oid.String()
}

// EKUByName resolves a symbolic extended-key-usage name.
func EKUByName(name string) (asn1.ObjectIdentifier, bool) {
	switch name {
	case "serverAuth":
		return OIDEKUServerAuth, true
	case "clientAuth":
		return OIDEKUClientAuth, true
	case "codeSigning":
		return OIDEKUCodeSigning, true
	case "emailProtection":
		return OIDEKUEmailProtection, true
	case "timeStamping":
		return OIDEKUTimeStamping, true
	case "ocspSigning":
		return OIDEKUOCSPSigning, true
	case "any":
		return OIDEKUAny, true
	}
	return nil, false
}
