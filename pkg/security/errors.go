package security

import "errors"

var (
	ErrSecretKeyEmpty    = errors.New("security: secret key is empty")
	ErrPublicKeyLoad     = errors.New("security: failed to load public key")
	ErrPrivateKeyLoad    = errors.New("security: failed to load private key")
	ErrTokenMissing      = errors.New("security: token is missing")
	ErrTokenInvalid      = errors.New("security: token is invalid")
	ErrTokenExpired      = errors.New("security: token has expired")
	ErrTokenNotValidYet  = errors.New("security: token is not valid yet")
	ErrTokenMalformed    = errors.New("security: token is malformed")
	ErrSignatureInvalid  = errors.New("security: signature is invalid")
	ErrAlgorithmInvalid  = errors.New("security: invalid algorithm")
	ErrAlgorithmMismatch = errors.New("security: algorithm mismatch")
	ErrSubjectMissing    = errors.New("security: user id claim is missing")
)
