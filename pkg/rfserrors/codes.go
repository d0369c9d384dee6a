package rfserrors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent fundamental failure categories shared across
// every component of the daemon.
const (
	// ErrorCodeIO represents failures in input/output operations: reading or
	// writing a block file, scanning a collision directory, reading or
	// writing a metadata.json, touching the lock sentinel.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInternal represents unexpected failures that don't fit into
	// any other category — bugs, exhausted CID retry budgets, and the like.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Path and naming error codes.
const (
	// ErrorCodePoolNotFound indicates the supplied pool ID has no registry entry.
	ErrorCodePoolNotFound ErrorCode = "POOL_NOT_FOUND"

	// ErrorCodeInvalidPathComponent indicates a name failed component validation.
	ErrorCodeInvalidPathComponent ErrorCode = "INVALID_PATH_COMPONENT"

	// ErrorCodeEmptyPathComponent indicates an empty component in a split path.
	ErrorCodeEmptyPathComponent ErrorCode = "EMPTY_PATH_COMPONENT"

	// ErrorCodeEntryAlreadyExists indicates the destination listing already
	// has an entry under the requested name.
	ErrorCodeEntryAlreadyExists ErrorCode = "ENTRY_ALREADY_EXISTS"

	// ErrorCodeNotADirectory indicates an intermediate path component
	// resolved to a File entry instead of a Directory entry.
	ErrorCodeNotADirectory ErrorCode = "NOT_A_DIRECTORY"
)

// Serialization error codes.
const (
	// ErrorCodeSerialization indicates malformed JSON on read, or an
	// encoding failure on write, of a metadata.json or <cid>.json document.
	ErrorCodeSerialization ErrorCode = "SERIALIZATION_ERROR"
)
