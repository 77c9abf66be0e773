package datasourceupdates

import "time"

// State is one point in the data source's lifecycle.
type State string

const (
	// StateInitializing is the state before the first successful Init.
	StateInitializing State = "INITIALIZING"
	// StateValid means the data source is connected and current.
	StateValid State = "VALID"
	// StateInterrupted means a previously-valid connection is currently down.
	StateInterrupted State = "INTERRUPTED"
	// StateOff means the data source has been permanently stopped by an
	// unrecoverable error (e.g. 401). Closing a data source does not report
	// this state.
	StateOff State = "OFF"
)

// ErrorKind categorizes why a data source reported an error.
type ErrorKind string

const (
	ErrorKindUnknown        ErrorKind = "UNKNOWN"
	ErrorKindNetworkError   ErrorKind = "NETWORK_ERROR"
	ErrorKindErrorResponse  ErrorKind = "ERROR_RESPONSE"
	ErrorKindInvalidData    ErrorKind = "INVALID_DATA"
	ErrorKindStoreError     ErrorKind = "STORE_ERROR"
)

// ErrorInfo describes the most recent error a data source encountered.
type ErrorInfo struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Time       time.Time
}

// Status is a snapshot of a data source's health.
type Status struct {
	State      State
	StateSince time.Time
	LastError  *ErrorInfo
}
