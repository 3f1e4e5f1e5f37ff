package auth

// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness makes brute-force attacks expensive. It generates a random
// salt per hash and embeds it (and the cost) in the output:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 iterations)
//	 version

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// defaultCost is the bcrypt work factor. Cost 12 takes roughly 250ms on
	// a modern server: negligible for sign-in, brutal for an attacker.
	defaultCost = 12

	// MinSecretLength matches the minimum the mobile client has always enforced.
	MinSecretLength = 6

	// MaxSecretBytes is bcrypt's input limit. Longer input would be silently
	// truncated, so it is rejected instead.
	MaxSecretBytes = 72
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests. Using a lower cost (e.g. 4) makes tests run much faster
// without compromising the logic being tested.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Pass bcrypt.MinCost (4) from tests in other packages.
//
// Do NOT use in production: cost 4 is far too weak.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckStrength returns ErrWeakSecret if secret is shorter than
// MinSecretLength characters or longer than MaxSecretBytes bytes.
func CheckStrength(secret string) error {
	if utf8.RuneCountInString(secret) < MinSecretLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakSecret, MinSecretLength)
	}
	if len(secret) > MaxSecretBytes {
		return fmt.Errorf("%w: must be %d bytes or fewer", ErrWeakSecret, MaxSecretBytes)
	}
	return nil
}

// Hash hashes the given plaintext password with bcrypt.
//
// Store the result directly; it includes the salt and cost, and
// bcrypt.CompareHashAndPassword knows how to decode it.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxSecretBytes {
		return "", fmt.Errorf("%w: must be %d bytes or fewer", ErrWeakSecret, MaxSecretBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// A mismatch returns ErrInvalidCredential.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword uses a constant-time comparison internally,
// so an attacker can't tell from response time how close a guess was.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredential
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
