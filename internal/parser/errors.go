package parser

import "errors"

var (
	// ErrNoEmbeddedMessage means the line carries no 8=FIX... marker.
	ErrNoEmbeddedMessage = errors.New("no embedded FIX message")
	// ErrSchemaUnavailable means no dictionary is configured for the
	// message's version, or the configured one failed to load.
	ErrSchemaUnavailable = errors.New("schema unavailable")
	// ErrUnknownMessageType means MsgType(35) is absent or not in the schema.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMalformedField means a tag=value token has a non-numeric tag.
	ErrMalformedField = errors.New("malformed field")
	ErrRenderFailure  = errors.New("render failure")
)
