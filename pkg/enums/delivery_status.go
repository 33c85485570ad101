package enums

import "fmt"

// DeliveryStatus maps to the delivery_status enum in Postgres.
//
// Transitions only move forward: pending -> processing -> processed, or
// pending -> processing -> pending (retry), or pending -> processing -> failed
// once retries are exhausted. The processing value only exists inside a claim
// transaction and is never visible across a committed row.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusProcessed  DeliveryStatus = "processed"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusProcessing,
	DeliveryStatusProcessed,
	DeliveryStatusFailed,
}

// IsValid checks whether the value matches the canonical enum.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusProcessed || s == DeliveryStatusFailed
}

// ParseDeliveryStatus converts raw strings into DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
