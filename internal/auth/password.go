package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgoBcrypt   = "bcrypt"
	AlgoArgon2id = "argon2id"
)

var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordHasher produces salted one-way hashes for new passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

type bcryptHasher struct {
	cost int
}

type argon2idHasher struct {
	params *argon2id.Params
}

// NewPasswordHasher returns the hasher used when storing new passwords.
func NewPasswordHasher(algo string) (PasswordHasher, error) {
	switch strings.ToLower(algo) {
	case "", AlgoBcrypt:
		return &bcryptHasher{cost: bcrypt.DefaultCost}, nil
	case AlgoArgon2id:
		return &argon2idHasher{params: argon2id.DefaultParams}, nil
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", algo)
	}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	return GeneratePasswordHash(password, h.cost)
}

func (h *argon2idHasher) Hash(password string) (string, error) {
	return argon2id.CreateHash(password, h.params)
}

func GeneratePasswordHash(password string, cost int) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hashedPassword), nil
}

// ComparePasswordHash checks password against a stored hash. The algorithm is
// taken from the hash encoding, so users hashed before PASSWORD_HASH_ALGO
// changed can still log in. Returns ErrPasswordMismatch on mismatch.
func ComparePasswordHash(hashedPassword, password string) error {
	if strings.HasPrefix(hashedPassword, "$argon2id$") {
		match, err := argon2id.ComparePasswordAndHash(password, hashedPassword)
		if err != nil {
			return err
		}
		if !match {
			return ErrPasswordMismatch
		}
		return nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
