package introspect

import "errors"

// ErrUnsupportedProvider is returned when no introspector exists for the
// requested backend.
var ErrUnsupportedProvider = errors.New("introspect: unsupported provider")
