package emitter

import "errors"

// Sentinel kinds for emitter errors.
var (
	ErrConnect = errors.New("mqtt connect failed")
	ErrPublish = errors.New("mqtt publish failed")
	ErrTimeout = errors.New("mqtt timeout")
)
