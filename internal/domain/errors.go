package domain

import "errors"

// Бизнес-ошибки, маппятся на HTTP коды в хендлерах
var (
	ErrNotFound     = errors.New("not found")          // 404
	ErrForbidden    = errors.New("forbidden")          // 403
	ErrUnauthorized = errors.New("unauthorized")       // 401
	ErrInvalidToken = errors.New("invalid token")      // 401
	ErrValidation   = errors.New("validation failed")  // 400
)
