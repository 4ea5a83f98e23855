package tpmseal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

const (
	softwareSecretFile = "tpmseal.secret"
	softwareSecretSize = 32
	softwareKeySize    = 32
)

// Software seals data with an AES-256-GCM key derived via HKDF from a
// machine-local secret file, for platforms or deployments without a TPM.
// It provides no hardware root of trust: anyone who can read both the
// secret file and the sealed blob can recover the plaintext.
type Software struct {
	key []byte
}

// NewSoftwareSealer loads (or creates) the machine-local secret under
// secretDir and derives a field-sealing key from it.
func NewSoftwareSealer(secretDir string) (*Software, error) {
	secret, err := loadOrCreateSecret(secretDir)
	if err != nil {
		return nil, err
	}

	key := make([]byte, softwareKeySize)
	reader := hkdf.New(sha256.New, secret, nil, []byte("nekogate:tpmseal:admin-key"))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("tpmseal: derive key: %w", err)
	}

	return &Software{key: key}, nil
}

func loadOrCreateSecret(secretDir string) ([]byte, error) {
	path := filepath.Join(secretDir, softwareSecretFile)

	if data, err := os.ReadFile(path); err == nil {
		if len(data) != softwareSecretSize {
			return nil, fmt.Errorf("tpmseal: secret file %s has wrong size", path)
		}
		return data, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("tpmseal: read secret: %w", err)
	}

	if err := os.MkdirAll(secretDir, 0700); err != nil {
		return nil, fmt.Errorf("tpmseal: create secret dir: %w", err)
	}

	secret := make([]byte, softwareSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("tpmseal: generate secret: %w", err)
	}
	if err := os.WriteFile(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("tpmseal: write secret: %w", err)
	}
	return secret, nil
}

// Available always reports true: the software fallback has no external
// device to lose contact with.
func (s *Software) Available() bool { return true }

// Seal encrypts data with AES-256-GCM under a random nonce, prepended to
// the ciphertext.
func (s *Software) Seal(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("tpmseal: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("tpmseal: new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("tpmseal: nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Unseal reverses Seal, returning ErrCorrupted if sealed fails to
// authenticate.
func (s *Software) Unseal(sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("tpmseal: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("tpmseal: new gcm: %w", err)
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, ErrCorrupted
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCorrupted
	}
	return plaintext, nil
}

// Close is a no-op: the software Sealer holds no external resources.
func (s *Software) Close() error { return nil }
