package constants

// Severity is the canonical level for activity-log entries.
type Severity string

// Stable values (these exact strings go out on /status).
const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityError   Severity = "ERROR"
)
