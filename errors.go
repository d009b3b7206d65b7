package courier

import "errors"

// ErrUnknownFailure marks a handler panic whose value did not carry an
// error. OnError callbacks therefore always see either the callback's own
// error or an error wrapping this sentinel; errors.Is distinguishes the two.
var ErrUnknownFailure = errors.New("courier: unknown failure")
