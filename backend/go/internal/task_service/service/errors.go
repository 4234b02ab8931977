package service

import "errors"

// Submission errors. Each one is reported to the client as a taskRejected event.
var (
	ErrEmptyRequest  = errors.New("request must not be empty")
	ErrTaskInFlight  = errors.New("a task is already in progress on this connection")
	ErrRateLimited   = errors.New("too many submissions, please slow down")
	ErrSessionClosed = errors.New("session is closed")
)
