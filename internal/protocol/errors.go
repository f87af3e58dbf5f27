package protocol

import "errors"

var (
	ErrTypeMismatch       = errors.New("protocol: field type mismatch")
	ErrShape              = errors.New("protocol: led value is not an rgb triple")
	ErrLengthMismatch     = errors.New("protocol: length mismatch")
	ErrParse              = errors.New("protocol: malformed record")
	ErrMissingVersion     = errors.New("protocol: header missing version")
	ErrIncompleteHeader   = errors.New("protocol: incomplete header")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrOutOfRange         = errors.New("protocol: field out of range")
)
