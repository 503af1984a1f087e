package domain

import "errors"

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoFile       = errors.New("no file")
)
