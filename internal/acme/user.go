package acme

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-acme/lego/v4/registration"
)

// User implements registration.User for lego
type User struct {
	Email        string                 `json:"email"`
	Registration *registration.Resource `json:"registration"`
	key          crypto.PrivateKey
}

func (u *User) GetEmail() string {
	return u.Email
}

func (u *User) GetRegistration() *registration.Resource {
	return u.Registration
}

func (u *User) GetPrivateKey() crypto.PrivateKey {
	return u.key
}

// account files under the account directory
const (
	accountKeyFile = "account.key"
	accountRegFile = "account.json"
)

// loadUser reads the persisted account for email, generating a key when
// none exists. The registration is nil until the account is registered.
func loadUser(dir, email string) (*User, error) {
	keyPath := filepath.Join(dir, accountKeyFile)
	keyPem, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate account key: %w", err)
		}
		encoded, err := encodePrivateKey(key)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create account dir: %w", err)
		}
		if err := os.WriteFile(keyPath, encoded, 0600); err != nil {
			return nil, fmt.Errorf("failed to save account key: %w", err)
		}
		return &User{Email: email, key: key}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account key: %w", err)
	}

	key, err := parsePrivateKey(keyPem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account key: %w", err)
	}
	user := &User{Email: email, key: key}

	data, err := os.ReadFile(filepath.Join(dir, accountRegFile))
	if errors.Is(err, os.ErrNotExist) {
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account registration: %w", err)
	}
	var saved User
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to decode account registration: %w", err)
	}
	// a changed email means a new registration
	if saved.Email == email {
		user.Registration = saved.Registration
	}
	return user, nil
}

func saveUser(dir string, u *User) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, accountRegFile), data, 0600)
}

func parsePrivateKey(keyPem []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(keyPem)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported private key type")
}

func encodePrivateKey(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode account key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}
