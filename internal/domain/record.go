package domain

import "time"

// RecordKind distinguishes the telemetry signal a record came from.
type RecordKind string

// Telemetry record kinds.
const (
	KindLog    RecordKind = "log"
	KindSpan   RecordKind = "span"
	KindMetric RecordKind = "metric"
)

// Record is one telemetry document from the backing store.
// Attributes hold string-valued fields (service, status, custom tags);
// Numerics hold numeric fields (duration, metric value).
type Record struct {
	id         string
	kind       RecordKind
	timestamp  time.Time
	service    string
	operation  string
	status     string
	severity   string
	message    string
	attributes map[string]string
	numerics   map[string]float64
}

// NewRecord creates a telemetry record.
func NewRecord(
	id string, kind RecordKind, ts time.Time,
	service, operation, status, severity, message string,
	attributes map[string]string, numerics map[string]float64,
) Record {
	return Record{
		id:         id,
		kind:       kind,
		timestamp:  ts,
		service:    service,
		operation:  operation,
		status:     status,
		severity:   severity,
		message:    message,
		attributes: attributes,
		numerics:   numerics,
	}
}

// ID returns the document identifier.
func (r Record) ID() string { return r.id }

// Kind returns the telemetry signal kind.
func (r Record) Kind() RecordKind { return r.kind }

// Timestamp returns the record timestamp.
func (r Record) Timestamp() time.Time { return r.timestamp }

// Service returns the emitting service name.
func (r Record) Service() string { return r.service }

// Operation returns the operation or span name.
func (r Record) Operation() string { return r.operation }

// Status returns the record status (e.g. ok, error, 500).
func (r Record) Status() string { return r.status }

// Severity returns the log severity, empty for spans and metrics.
func (r Record) Severity() string { return r.severity }

// Message returns the log message or span description.
func (r Record) Message() string { return r.message }

// Attributes returns the string-valued attributes.
func (r Record) Attributes() map[string]string { return r.attributes }

// Numerics returns the numeric-valued fields.
func (r Record) Numerics() map[string]float64 { return r.numerics }
