package usecase

import "errors"

var (
	// ErrInvalidNode возвращается для снимка, который нельзя принять
	ErrInvalidNode = errors.New("invalid node snapshot")

	// ErrInvalidPage возвращается для отрицательных offset/limit
	ErrInvalidPage = errors.New("offset and limit must be non-negative")

	// ErrShuttingDown возвращается, когда шина событий уже закрыта
	ErrShuttingDown = errors.New("service is shutting down")
)
