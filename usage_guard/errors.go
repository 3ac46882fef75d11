package usage_guard

import (
	"errors"
	"fmt"
)

// DenialReason identifies which limit refused an admission. The values are
// stable strings used in logs and canned user notices.
type DenialReason string

const (
	ReasonDailyLimit  DenialReason = "daily-limit"
	ReasonHourlyLimit DenialReason = "hourly-limit"
	ReasonSessionCost DenialReason = "session-cost"
	ReasonDiskSpace   DenialReason = "disk-space"
	ReasonMemory      DenialReason = "memory"
)

// QuotaExceededError denies an admission because a configured usage quota
// is exhausted.
type QuotaExceededError struct {
	Reason DenialReason
	Used   float64
	Limit  float64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded (%s): %.2f of %.2f used", e.Reason, e.Used, e.Limit)
}

// ResourceExceededError denies an admission because the host is out of
// headroom.
type ResourceExceededError struct {
	Reason  DenialReason
	Current float64
	Limit   float64
}

func (e *ResourceExceededError) Error() string {
	return fmt.Sprintf("resource limit (%s): %.2f against limit %.2f", e.Reason, e.Current, e.Limit)
}

// Denial extracts the denial reason from an admission error, if it carries
// one.
func Denial(err error) (DenialReason, bool) {
	var quota *QuotaExceededError
	if errors.As(err, &quota) {
		return quota.Reason, true
	}

	var resource *ResourceExceededError
	if errors.As(err, &resource) {
		return resource.Reason, true
	}

	return "", false
}
