package journal

import "errors"

var (
	ErrUnknownWeek        = errors.New("unknown week")
	ErrUnknownFortuneType = errors.New("unknown fortune type")
	ErrSessionNotFound    = errors.New("session not found")
	ErrDuplicateSession   = errors.New("session already exists")
	ErrSessionCompleted   = errors.New("session already completed")
)
