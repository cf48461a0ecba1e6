package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a wrong username or password
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword hashes a plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword compares a bcrypt hashed password with a plain text password
func ComparePassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// VerifyAdmin checks login credentials against the configured admin.
// The password hash is always compared so timing does not reveal the
// username.
func VerifyAdmin(wantUser, hash, username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(wantUser), []byte(username)) == 1
	passErr := ComparePassword(hash, password)
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
