package scheduler

import "errors"

// ErrInvalidConfig is returned for a schedule that can never fire
var ErrInvalidConfig = errors.New("invalid scheduler configuration")
