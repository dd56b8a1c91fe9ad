package models

import "errors"

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooWeak  = errors.New("password must contain a digit, a lowercase letter, an uppercase letter and a symbol")
)
