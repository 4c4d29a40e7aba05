package auth

import "errors"

// Common download token errors
var (
	// ErrInvalidToken indicates the token format is invalid or the signature doesn't match
	ErrInvalidToken = errors.New("invalid download token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("download token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("download token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("download token is missing")

	// ErrWrongTokenType indicates the token was minted for a different purpose
	ErrWrongTokenType = errors.New("wrong token type")
)
