package enums

import "fmt"

// CertificateStatus maps to the certificate_status enum in Postgres.
type CertificateStatus string

const (
	CertificateStatusPending CertificateStatus = "pending"
	CertificateStatusIssued  CertificateStatus = "issued"
	CertificateStatusRevoked CertificateStatus = "revoked"
)

var validCertificateStatuses = []CertificateStatus{
	CertificateStatusPending,
	CertificateStatusIssued,
	CertificateStatusRevoked,
}

// String implements fmt.Stringer.
func (c CertificateStatus) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical certificate_status enum.
func (c CertificateStatus) IsValid() bool {
	for _, candidate := range validCertificateStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a stored certificate may move to next.
// pending and issued are entry states written on insert only.
func (c CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	return c == CertificateStatusIssued && next == CertificateStatusRevoked
}

// ParseCertificateStatus converts raw input into CertificateStatus.
func ParseCertificateStatus(value string) (CertificateStatus, error) {
	for _, candidate := range validCertificateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid certificate status %q", value)
}

// VerificationStatus is the public outcome of a verification lookup.
type VerificationStatus string

const (
	VerificationIssued   VerificationStatus = "issued"
	VerificationRevoked  VerificationStatus = "revoked"
	VerificationNotFound VerificationStatus = "not_found"
)
