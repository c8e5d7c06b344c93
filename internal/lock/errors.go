package lock

import "errors"

// ErrLockTimeout is returned when a lock cannot be acquired before the context ends.
var ErrLockTimeout = errors.New("lock acquisition timeout")
