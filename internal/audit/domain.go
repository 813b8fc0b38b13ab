package audit

import "time"

// Decision is one recorded authorization outcome. Denials are always
// recorded; grants are recorded for the privileged operations that mutate
// protected fields.
type Decision struct {
	ID          int64
	PrincipalID string
	Operation   string
	ResourceID  int64
	Granted     bool
	DecidedAt   time.Time
}
