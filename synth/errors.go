package synth

import "errors"

// ErrCompleterRequired indicates the completer was nil.
var ErrCompleterRequired = errors.New("completer is required")
