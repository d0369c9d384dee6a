package rfserrors

// PathError is a specialized error type for path and naming failures:
// invalid components, empty components, a pool ID with no registry entry,
// a name already present in a directory listing, or a file where a
// directory was expected.
type PathError struct {
	*baseError

	// component identifies the offending path component or filename, when
	// applicable.
	component string

	// poolID identifies the offending pool ID, when applicable.
	poolID uint64
}

// NewPathError creates a new path-specific error with the provided context.
func NewPathError(err error, code ErrorCode, msg string) *PathError {
	return &PathError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the PathError type.
func (pe *PathError) WithMessage(msg string) *PathError {
	pe.baseError.WithMessage(msg)
	return pe
}

// WithDetail adds contextual information while maintaining the PathError type.
func (pe *PathError) WithDetail(key string, value any) *PathError {
	pe.baseError.WithDetail(key, value)
	return pe
}

// WithComponent records which path component or filename was rejected.
func (pe *PathError) WithComponent(component string) *PathError {
	pe.component = component
	return pe
}

// WithPoolID records which pool ID could not be resolved.
func (pe *PathError) WithPoolID(id uint64) *PathError {
	pe.poolID = id
	return pe
}

// Component returns the offending path component or filename.
func (pe *PathError) Component() string {
	return pe.component
}

// PoolID returns the offending pool ID.
func (pe *PathError) PoolID() uint64 {
	return pe.poolID
}

// NewPoolNotFoundError builds the error for an unresolvable pool ID.
func NewPoolNotFoundError(id uint64) *PathError {
	return NewPathError(nil, ErrorCodePoolNotFound, "pool not found").WithPoolID(id)
}

// NewInvalidComponentError builds the error for a component rejected by
// component validation.
func NewInvalidComponentError(component string) *PathError {
	return NewPathError(nil, ErrorCodeInvalidPathComponent,
		"invalid character or format in path component").WithComponent(component)
}

// NewEmptyComponentError builds the error for an empty path component.
func NewEmptyComponentError() *PathError {
	return NewPathError(nil, ErrorCodeEmptyPathComponent, "path component cannot be empty")
}

// NewEntryAlreadyExistsError builds the error for a name collision inside a
// directory listing.
func NewEntryAlreadyExistsError(name string) *PathError {
	return NewPathError(nil, ErrorCodeEntryAlreadyExists,
		"an entry with this name already exists at this path").WithComponent(name)
}

// NewNotADirectoryError builds the error for an intermediate component that
// resolved to a file.
func NewNotADirectoryError(component string) *PathError {
	return NewPathError(nil, ErrorCodeNotADirectory,
		"the specified path is a file, not a directory").WithComponent(component)
}
