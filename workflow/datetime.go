package workflow

import (
	"fmt"
	"strings"
)

const tenantDatetimeMarker = "TENANT DATETIME CONTEXT"

// InjectTenantDatetimeContext appends a tenant-datetime block to
// message, at most once: if message already contains the marker
// substring, it is returned unchanged. isoDatetime is the tenant-local
// current time already formatted as ISO8601 by the caller.
func InjectTenantDatetimeContext(message, timezone, isoDatetime string) string {
	if strings.Contains(message, tenantDatetimeMarker) {
		return message
	}
	return fmt.Sprintf(
		"%s\n\n--- %s ---\nTenant timezone: %s\nCurrent tenant-local datetime: %s\nInterpret relative date/time expressions (e.g., \"this month\", \"today\") against this datetime, not the assistant's own clock.",
		message, tenantDatetimeMarker, timezone, isoDatetime,
	)
}

const retryErrorMarker = "PREVIOUS ATTEMPT ERROR DETAILS"

// InjectRetryErrorContext suffixes message with the latest attempt's
// error, replacing any previously-appended error block rather than
// stacking them (§12.1 idempotency: one block per retry, not
// cumulative).
func InjectRetryErrorContext(message string, attempt int, errMsg string) string {
	base := message
	if idx := strings.Index(message, "\n\n--- "+retryErrorMarker+" ---"); idx >= 0 {
		base = message[:idx]
	}
	return fmt.Sprintf(
		"%s\n\n--- %s ---\nAttempt %d failed with: %s\nPlease review the above and adjust your approach accordingly — avoid repeating the same failure.",
		base, retryErrorMarker, attempt, errMsg,
	)
}
