package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNoAdapter     = errors.New("no adapter registered for venue")
	ErrInvalidPath   = errors.New("invalid arbitrage path")
	ErrInvalidAmount = errors.New("invalid amount")
)
