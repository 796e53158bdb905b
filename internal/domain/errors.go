package domain

import "errors"

var (
	ErrEngineClosed    = errors.New("engine is closed")
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)
