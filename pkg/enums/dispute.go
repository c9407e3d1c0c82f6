package enums

import "fmt"

// DisputeStatus tracks the lifecycle of an order dispute.
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusResolved,
	DisputeStatusClosed,
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the dispute can no longer change state.
func (d DisputeStatus) IsTerminal() bool {
	return d == DisputeStatusResolved || d == DisputeStatusClosed
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// DisputeType classifies what a dispute is about.
type DisputeType string

const (
	DisputeTypeProductQuality DisputeType = "product_quality"
	DisputeTypeDeliveryIssue  DisputeType = "delivery_issue"
	DisputeTypePaymentIssue   DisputeType = "payment_issue"
	DisputeTypeOther          DisputeType = "other"
)

var validDisputeTypes = []DisputeType{
	DisputeTypeProductQuality,
	DisputeTypeDeliveryIssue,
	DisputeTypePaymentIssue,
	DisputeTypeOther,
}

// String implements fmt.Stringer.
func (d DisputeType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeType.
func (d DisputeType) IsValid() bool {
	for _, candidate := range validDisputeTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeType converts raw input into a DisputeType.
func ParseDisputeType(value string) (DisputeType, error) {
	for _, candidate := range validDisputeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute type %q", value)
}
