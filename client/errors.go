package client

import (
	"errors"
	"fmt"
)

var (
	ErrNotStarted         = errors.New("discord: client not started or handshake incomplete")
	ErrAlreadyStarted     = errors.New("discord: client already started")
	ErrClosed             = errors.New("discord: client closed")
	ErrSubscriptionFailed = errors.New("discord: command rejected by discord")
	ErrRateLimited        = errors.New("discord: rate limited")
	ErrTimeout            = errors.New("discord: timed out waiting for reply")
	ErrDecode             = errors.New("discord: malformed payload")
	ErrMissingField       = errors.New("discord: expected field missing from payload")
	ErrUnexpectedReply    = errors.New("discord: unexpected handshake reply")
)

// CommandError is returned when Discord answers a command with an ERROR
// event. It matches ErrSubscriptionFailed.
type CommandError struct {
	Cmd     Command
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("discord: %s failed", e.Cmd)
	}
	return fmt.Sprintf("discord: %s failed: %s (code %d)", e.Cmd, e.Message, e.Code)
}

func (e *CommandError) Is(target error) bool {
	return target == ErrSubscriptionFailed
}
