package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// Role names which configured party an identity belongs to.
type Role string

const (
	RoleFeePayer Role = "fee_payer"
	RoleOwner    Role = "owner"
)

var (
	// ErrIdentityMismatch means a secret does not produce the configured public key.
	ErrIdentityMismatch = errors.New("identity mismatch")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidSecret    = errors.New("invalid secret")
)

// MismatchError reports which role failed identity validation.
type MismatchError struct {
	Role     Role
	Expected solana.PublicKey
	Derived  solana.PublicKey
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: identity mismatch: secret derives %s, configured %s", e.Role, e.Derived, e.Expected)
}

func (e *MismatchError) Unwrap() error { return ErrIdentityMismatch }

// Identity is a validated keypair for a single role.
type Identity struct {
	Role       Role
	PublicKey  solana.PublicKey
	PrivateKey solana.PrivateKey
}

// ValidateIdentity resolves secret, derives its public key from the ed25519 seed and
// requires it to equal expectedPubkey.
func ValidateIdentity(role Role, secret, expectedPubkey string) (Identity, error) {
	expected, err := ParsePublicKey(expectedPubkey)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", role, err)
	}
	key, err := ResolveSecret(secret)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", role, err)
	}
	derived, err := derivePublicKey(key)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", role, err)
	}
	if !derived.Equals(expected) {
		return Identity{}, &MismatchError{Role: role, Expected: expected, Derived: derived}
	}
	return Identity{Role: role, PublicKey: derived, PrivateKey: key}, nil
}

// ParsePublicKey decodes a base58 public key.
func ParsePublicKey(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w %q: %v", ErrInvalidPublicKey, s, err)
	}
	return pk, nil
}

// ResolveSecret accepts a base58 keypair string, "env:NAME" or "file:PATH"
// (solana-keygen JSON).
func ResolveSecret(secret string) (solana.PrivateKey, error) {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return nil, fmt.Errorf("%w: empty", ErrInvalidSecret)
	case strings.HasPrefix(secret, "env:"):
		name := strings.TrimPrefix(secret, "env:")
		_ = godotenv.Load() // best-effort
		val := os.Getenv(name)
		if val == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrInvalidSecret, name)
		}
		return decodeSecret(val)
	case strings.HasPrefix(secret, "file:"):
		key, err := solana.PrivateKeyFromSolanaKeygenFile(strings.TrimPrefix(secret, "file:"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
		}
		return key, nil
	default:
		return decodeSecret(secret)
	}
}

func decodeSecret(b58 string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(b58))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// derivePublicKey recomputes the public key from the seed half of the keypair; the
// embedded public half must agree with it.
func derivePublicKey(key solana.PrivateKey) (solana.PublicKey, error) {
	if len(key) != ed25519.PrivateKeySize {
		return solana.PublicKey{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSecret, ed25519.PrivateKeySize, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, key[ed25519.SeedSize:]) {
		return solana.PublicKey{}, fmt.Errorf("%w: keypair halves disagree", ErrInvalidSecret)
	}
	return solana.PublicKeyFromBytes(derived), nil
}
