package core

// # Error Codes Reference
//
// Files that cannot be processed are recorded in the run's out list together
// with a stable code, so an operator can tell at a glance why a dataset was
// skipped without digging through logs.
//
// # Fetch Errors (FETCH001-FETCH099)
//
//	FETCH001 - HTTP status: The server answered with an error status
//	           Patterns: "http status"
//	FETCH002 - Unreachable host
//	           Patterns: "no such host", "connection refused", "connection reset"
//	FETCH003 - Timeout
//	           Patterns: "deadline exceeded", "timeout"
//	FETCH004 - Response too large
//	           Patterns: "exceeds max size"
//	FETCH005 - Local file missing
//	           Patterns: "no such file"
//	FETCH006 - Object store unavailable
//	           Patterns: "object store"
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Unsupported format
//	          Patterns: "unsupported format"
//	LOAD002 - Empty file
//	          Patterns: "empty file"
//	LOAD003 - Malformed CSV
//	          Patterns: "parse error", "wrong number of fields", "bare \" in non-quoted"
//	LOAD004 - Malformed JSON
//	          Patterns: "malformed json", "invalid character", "unexpected end of json", "cannot unmarshal"
//	LOAD005 - Malformed workbook or archive
//	          Patterns: "not a valid zip", "zip: checksum", "zip: unsupported", "workbook"
//
// # Schema Errors (SCHEMA001-SCHEMA099)
//
//	SCHEMA001 - No column in common with the schema
//	            Patterns: "no common columns"
//	SCHEMA002 - Schema could not be read
//	            Patterns: "invalid schema"
//
// # Sink Errors (SINK001-SINK099)
//
//	SINK001 - Database write failed
//	          Patterns: "sqlstate", "database"
//	SINK002 - Object upload failed
//	          Patterns: "bucket"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the loading stages. Wrap them with %w; their text
// is matched by the catalog below.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyFile         = errors.New("empty file")
	ErrNoCommonColumns   = errors.New("no common columns with schema")
	ErrHTTPStatus        = errors.New("http status")
	ErrTooLarge          = errors.New("exceeds max size")
	ErrInvalidSchema     = errors.New("invalid schema")
)

// UserMessage provides a readable description of an error with a code.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Stable reference code
}

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgHTTPStatus  = UserMessage{"The server answered with an error status", "Check that the dataset URL is still published", "FETCH001"}
	msgUnreachable = UserMessage{"The host could not be reached", "Check the URL and network access", "FETCH002"}
	msgTimeout     = UserMessage{"Download timed out", "Raise HTTP_TIMEOUT or retry later", "FETCH003"}
	msgTooLarge    = UserMessage{"Response exceeds the configured size limit", "Raise FETCH_MAX_BYTES", "FETCH004"}
	msgNoFile      = UserMessage{"Local file does not exist", "Check the configured path", "FETCH005"}
	msgObjectStore = UserMessage{"Object store is not available", "Check the S3_* settings", "FETCH006"}
	msgFormat      = UserMessage{"File format is not supported", "Convert the file to CSV, XLSX or JSON", "LOAD001"}
	msgEmpty       = UserMessage{"File contains no rows", "Nothing to do", "LOAD002"}
	msgCSV         = UserMessage{"File is not a valid CSV", "Check the delimiter and quoting", "LOAD003"}
	msgJSON        = UserMessage{"File is not valid JSON", "Check that the file is a JSON array of records", "LOAD004"}
	msgArchive     = UserMessage{"Workbook or archive is corrupted", "Re-download the file", "LOAD005"}
	msgNoCommon    = UserMessage{"No column matches the schema", "Add a column alias for this dataset", "SCHEMA001"}
	msgSchema      = UserMessage{"Schema could not be read", "Check the schema URL", "SCHEMA002"}
	msgDatabase    = UserMessage{"Database write failed", "Check DATABASE_URL or SQLITE_PATH", "SINK001"}
	msgBucket      = UserMessage{"Object upload failed", "Check the S3 bucket settings", "SINK002"}
)

// errorPatterns maps technical error patterns (case-insensitive) to messages.
// Order matters: more specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// Pipeline sentinels first; their text is ours and never ambiguous.
	{"no common columns", msgNoCommon},
	{"unsupported format", msgFormat},
	{"empty file", msgEmpty},
	{"exceeds max size", msgTooLarge},
	{"http status", msgHTTPStatus},

	{"object store", msgObjectStore},
	{"no such host", msgUnreachable},
	{"connection refused", msgUnreachable},
	{"connection reset", msgUnreachable},
	{"deadline exceeded", msgTimeout},
	{"timeout", msgTimeout},
	{"no such file", msgNoFile},

	{"parse error", msgCSV},
	{"wrong number of fields", msgCSV},
	{`bare " in non-quoted`, msgCSV},
	{"not a valid zip", msgArchive},
	{"zip: checksum", msgArchive},
	{"zip: unsupported", msgArchive},
	{"workbook", msgArchive},
	{"malformed json", msgJSON},
	{"invalid character", msgJSON},
	{"unexpected end of json", msgJSON},
	{"cannot unmarshal", msgJSON},

	{"invalid schema", msgSchema},
	{"sqlstate", msgDatabase},
	{"database", msgDatabase},
	{"bucket", msgBucket},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a UserMessage.
// Returns the zero value for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// ErrorCode returns the catalog code of err, or "" when err is nil.
func ErrorCode(err error) string {
	return MapError(err).Code
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// UserError pairs a technical error with its catalog message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s (Code: %s): %v", e.User.Message, e.User.Code, e.Technical)
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err through the catalog. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
