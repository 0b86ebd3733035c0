package domain

import "time"

// ResolveStatus maps the current time and the event window onto the canonical
// status. CANCELLED is absorbing: once cancelled, no automatic transition may
// leave it. Both boundaries are inclusive toward ONGOING.
func ResolveStatus(now, startDate, endDate time.Time, current EventStatus) EventStatus {
	if current == StatusCancelled {
		return StatusCancelled
	}
	if now.Before(startDate) {
		return StatusScheduled
	}
	if now.After(endDate) {
		return StatusCompleted
	}
	return StatusOngoing
}
