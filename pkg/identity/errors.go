package identity

import "github.com/pkg/errors"

var (
	// ErrKeyNotFound is returned when the keystore has no key for an id.
	ErrKeyNotFound = errors.New("key not found")
	// ErrIdentityNotFound is returned when no identity is stored under a hash.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrNoSigningKey is returned by Sign on identities resolved from storage.
	ErrNoSigningKey = errors.New("identity has no private signing key")
	// ErrInvalidIdentity is returned when identity bytes cannot be decoded.
	ErrInvalidIdentity = errors.New("invalid identity")
)
