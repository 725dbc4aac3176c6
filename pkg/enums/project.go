package enums

import "fmt"

// ProjectStatus maps to the project_status enum in Postgres.
type ProjectStatus string

const (
	ProjectStatusOpen       ProjectStatus = "open"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

var validProjectStatuses = []ProjectStatus{
	ProjectStatusOpen,
	ProjectStatusInProgress,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// IsValid reports whether the value matches the canonical project_status enum.
func (p ProjectStatus) IsValid() bool {
	for _, candidate := range validProjectStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProjectStatus converts raw input into ProjectStatus.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	for _, candidate := range validProjectStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid project status %q", value)
}

// ApplicationStatus maps to the application_status enum in Postgres.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

var validApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusAccepted,
	ApplicationStatusRejected,
}

// IsValid reports whether the value matches the canonical application_status enum.
func (a ApplicationStatus) IsValid() bool {
	for _, candidate := range validApplicationStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
