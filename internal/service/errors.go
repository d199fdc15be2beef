package service

import "errors"

// ErrInvalidInput — в запросе не хватает обязательных полей.
var ErrInvalidInput = errors.New("invalid input")
