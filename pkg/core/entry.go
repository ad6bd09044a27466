package core

import (
	"maps"
	"time"
)

// DefaultNamespace is used when no namespace is configured. The simple
// terminal format omits the namespace tag when it equals this value.
const DefaultNamespace = "System"

// TimestampLayout is the ISO-8601 layout (UTC, millisecond precision) used for
// Entry.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Entry is a single log record. It is the JSON payload sent to remote
// collectors:
//
//	{"level":"info","namespace":"API","message":"ready","metadata":{...},"timestamp":"2025-01-02T15:04:05.000Z"}
//
// Entries are created once per log call and treated as immutable afterwards.
// Transports that retain entries store a Clone.
type Entry struct {
	Level     Level          `json:"level"`
	Namespace string         `json:"namespace"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Now returns the current time. Tests may replace it for deterministic
// timestamps.
var Now = func() time.Time {
	return time.Now()
}

// NewEntry builds an entry stamped with the current time.
func NewEntry(level Level, namespace, message string, metadata map[string]any) Entry {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Entry{
		Level:     level,
		Namespace: namespace,
		Message:   message,
		Metadata:  metadata,
		Timestamp: FormatTimestamp(Now()),
	}
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the entry timestamp. Malformed timestamps yield the zero time.
func (e Entry) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// HasMetadata reports whether the entry carries at least one metadata key.
func (e Entry) HasMetadata() bool {
	return len(e.Metadata) > 0
}

// Clone returns a copy whose top-level metadata map is not shared.
func (e Entry) Clone() Entry {
	if e.Metadata != nil {
		e.Metadata = maps.Clone(e.Metadata)
	}
	return e
}
