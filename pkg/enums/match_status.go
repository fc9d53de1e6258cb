package enums

import "fmt"

// MatchStatus tracks a single donation/beneficiary proposal.
type MatchStatus string

const (
	MatchStatusProposed  MatchStatus = "proposed"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusRejected  MatchStatus = "rejected"
	MatchStatusQuoteSent MatchStatus = "quote_sent"
	MatchStatusReceived  MatchStatus = "received"
)

var validMatchStatuses = []MatchStatus{
	MatchStatusProposed,
	MatchStatusAccepted,
	MatchStatusRejected,
	MatchStatusQuoteSent,
	MatchStatusReceived,
}

// CountsTowardAllocation reports whether the match's accepted quantity is
// held against the donation's remaining pool.
func (m MatchStatus) CountsTowardAllocation() bool {
	switch m {
	case MatchStatusAccepted, MatchStatusQuoteSent, MatchStatusReceived:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (m MatchStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MatchStatus.
func (m MatchStatus) IsValid() bool {
	for _, candidate := range validMatchStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMatchStatus converts raw input into a MatchStatus.
func ParseMatchStatus(value string) (MatchStatus, error) {
	for _, candidate := range validMatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match status %q", value)
}
