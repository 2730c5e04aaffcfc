package errors

import "errors"

var (
	ErrMissingBotToken   = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingSuperAdmin = errors.New("SUPER_ADMIN_ID environment variable is required")
	ErrEmptyKeywordSet   = errors.New("keyword set must not be empty")
	ErrInvalidBotMode    = errors.New("invalid bot mode")
)
