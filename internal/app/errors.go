package service

import "errors"

// Sentinel kinds for session errors.
var (
	ErrAlreadyRunning = errors.New("session already running")
	ErrStart          = errors.New("session start failed")
)
