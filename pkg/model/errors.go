package model

import "errors"

// ErrIndexOutOfRange is returned by operations that index into a
// Playlist or Queue with an out-of-range position.
var ErrIndexOutOfRange = errors.New("model: index out of range")
