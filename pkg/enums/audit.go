package enums

import "fmt"

// AuditAction names an administrative action recorded in audit_logs.
type AuditAction string

const (
	AuditActionRevokeCertificate AuditAction = "REVOKE_CERTIFICATE"
	AuditActionCompleteProject   AuditAction = "COMPLETE_PROJECT"
)

var validAuditActions = []AuditAction{
	AuditActionRevokeCertificate,
	AuditActionCompleteProject,
}

func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}

// AuditEntity is the kind of record an audit log row points at.
type AuditEntity string

const (
	AuditEntityCertificate AuditEntity = "certificate"
	AuditEntityProject     AuditEntity = "project"
)

var validAuditEntities = []AuditEntity{
	AuditEntityCertificate,
	AuditEntityProject,
}

func (a AuditEntity) IsValid() bool {
	for _, candidate := range validAuditEntities {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseAuditEntity(value string) (AuditEntity, error) {
	for _, candidate := range validAuditEntities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit entity %q", value)
}
