package codec

import "time"

// AppendOperation appends a new audit entry to log and trims it to the
// most recent capacity entries, matching the spec's "trimmed to 1000
// before each save" rule.
func AppendOperation(log []OperationLogEntry, operation, details string, now time.Time, capacity int) []OperationLogEntry {
	log = append(log, OperationLogEntry{
		Operation: operation,
		Details:   details,
		Timestamp: now,
	})
	if capacity > 0 && len(log) > capacity {
		log = log[len(log)-capacity:]
	}
	return log
}
