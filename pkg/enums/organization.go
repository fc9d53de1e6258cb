package enums

import "fmt"

// OrgType distinguishes donor businesses from recipient beneficiaries.
type OrgType string

const (
	OrgTypeBusiness    OrgType = "business"
	OrgTypeBeneficiary OrgType = "beneficiary"
)

// IsValid reports whether the value is a known OrgType.
func (o OrgType) IsValid() bool {
	return o == OrgTypeBusiness || o == OrgTypeBeneficiary
}

// ParseOrgType converts raw input into an OrgType.
func ParseOrgType(value string) (OrgType, error) {
	switch OrgType(value) {
	case OrgTypeBusiness:
		return OrgTypeBusiness, nil
	case OrgTypeBeneficiary:
		return OrgTypeBeneficiary, nil
	}
	return "", fmt.Errorf("invalid org type %q", value)
}

// OrgApprovalStatus tracks the admin moderation queue for registrations.
type OrgApprovalStatus string

const (
	OrgApprovalPending  OrgApprovalStatus = "pending"
	OrgApprovalApproved OrgApprovalStatus = "approved"
	OrgApprovalRejected OrgApprovalStatus = "rejected"
)

var validOrgApprovalStatuses = []OrgApprovalStatus{
	OrgApprovalPending,
	OrgApprovalApproved,
	OrgApprovalRejected,
}

// IsValid reports whether the value is a known OrgApprovalStatus.
func (o OrgApprovalStatus) IsValid() bool {
	for _, candidate := range validOrgApprovalStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrgApprovalStatus converts raw input into an OrgApprovalStatus.
func ParseOrgApprovalStatus(value string) (OrgApprovalStatus, error) {
	for _, candidate := range validOrgApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid org approval status %q", value)
}
