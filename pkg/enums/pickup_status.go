package enums

// PickupStatus tracks a pickup appointment row. Only the most recently
// created scheduled row is treated as active for a donation.
type PickupStatus string

const (
	PickupStatusScheduled PickupStatus = "scheduled"
	PickupStatusCanceled  PickupStatus = "canceled"
)

// IsValid reports whether the value is a known PickupStatus.
func (p PickupStatus) IsValid() bool {
	return p == PickupStatusScheduled || p == PickupStatusCanceled
}
