package worker

import "github.com/pkg/errors"

// ErrInvalidConfig is returned by NewPool when an ExecutionConfig fails
// validation.
var ErrInvalidConfig = errors.New("worker: invalid execution config")
