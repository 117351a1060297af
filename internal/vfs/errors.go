package vfs

import "fmt"

// Code is the closed set of ways a back-end operation can fail. The
// nfs3 package maps each one to an nfsstat3 value; no back-end needs to
// know NFS status numbers.
type Code int

const (
	ErrNotFound Code = iota
	ErrAccessDenied
	ErrNotDirectory
	ErrIsDirectory
	ErrAlreadyExists
	ErrNotEmpty
	ErrNoSpace
	ErrReadOnly
	ErrStaleHandle
	ErrInvalidHandle
	ErrNotSupported
	ErrInvalidArgument
	ErrIOError
	ErrNameTooLong
	ErrBadCookie
	ErrTooSmall
	ErrJukebox
)

// Error is the typed error every FileSystem method returns on failure.
type Error struct {
	Code    Code
	Message string
	Path    string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("vfs: %s: %s (%s)", e.Path, e.Message, e.codeName())
	}
	return fmt.Sprintf("vfs: %s (%s)", e.Message, e.codeName())
}

func (e *Error) codeName() string {
	switch e.Code {
	case ErrNotFound:
		return "not_found"
	case ErrAccessDenied:
		return "access_denied"
	case ErrNotDirectory:
		return "not_directory"
	case ErrIsDirectory:
		return "is_directory"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrNotEmpty:
		return "not_empty"
	case ErrNoSpace:
		return "no_space"
	case ErrReadOnly:
		return "read_only"
	case ErrStaleHandle:
		return "stale_handle"
	case ErrInvalidHandle:
		return "invalid_handle"
	case ErrNotSupported:
		return "not_supported"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrIOError:
		return "io_error"
	case ErrNameTooLong:
		return "name_too_long"
	case ErrBadCookie:
		return "bad_cookie"
	case ErrTooSmall:
		return "too_small"
	case ErrJukebox:
		return "jukebox"
	default:
		return "unknown"
	}
}

// New builds an *Error for code, with an optional path for context.
func New(code Code, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}
