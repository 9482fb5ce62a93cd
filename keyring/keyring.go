// Package keyring provides secure storage for the last converted
// configuration, which carries a private key.
// It uses the system keyring when available, falling back to
// encrypted local file storage when not.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/hkdf"

	"github.com/yllada/wgconv/common"
)

const (
	// serviceName is the identifier used in the system keyring.
	serviceName = "wgconv"

	// LastInputKey holds the most recent raw WireGuard config.
	LastInputKey = "last-input"

	hkdfInfo = "wgconv credential file v1"
)

// Store keeps secrets in the system keyring, or in an AES-GCM encrypted
// file when the keyring is unreachable.
type Store struct {
	mu       sync.RWMutex
	system   bool
	file     string
	key      []byte
	contents map[string]string
}

// Open probes the system keyring and returns a store backed by it, or by an
// encrypted file in dir when the probe fails.
func Open(dir string) (*Store, error) {
	probe := serviceName + "-probe"
	if err := keyring.Set(serviceName, probe, "probe"); err == nil {
		_ = keyring.Delete(serviceName, probe)
		common.LogDebug("Keyring: using system keyring")
		return &Store{system: true}, nil
	}

	common.LogDebug("Keyring: system keyring unavailable, using encrypted file")
	key, err := deriveKey(machineSecret())
	if err != nil {
		return nil, err
	}
	return OpenFile(filepath.Join(dir, common.CredentialsFileName), key)
}

// OpenFile returns a file-backed store encrypted with a 32-byte key.
func OpenFile(path string, key []byte) (*Store, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: key must be 32 bytes", common.ErrEncryption)
	}
	if err := common.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	s := &Store{file: path, key: key, contents: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	plain, err := s.decrypt(data)
	if err != nil {
		common.LogWarn("Keyring: discarding unreadable credential file: %v", err)
		return s, nil
	}
	if err := json.Unmarshal(plain, &s.contents); err != nil {
		common.LogWarn("Keyring: discarding malformed credential file: %v", err)
		s.contents = make(map[string]string)
	}
	return s, nil
}

// deriveKey stretches machine-specific data into an AES-256 key.
func deriveKey(secret []byte) ([]byte, error) {
	salt := sha256.Sum256([]byte(serviceName))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt[:], []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}
	return key, nil
}

func machineSecret() []byte {
	hostname, _ := os.Hostname()
	return []byte(fmt.Sprintf("%s-%s-%d", hostname, machineID(), os.Getuid()))
}

func machineID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return "default-machine-id"
}

// Store saves secret under key.
func (s *Store) Store(key, secret string) error {
	if key == "" {
		return errors.New("credential key cannot be empty")
	}

	if s.system {
		if err := keyring.Set(serviceName, key, secret); err != nil {
			return fmt.Errorf("storing %s in keyring: %w", key, err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[key] = secret
	return s.saveLocked()
}

// Get retrieves the secret stored under key.
func (s *Store) Get(key string) (string, error) {
	if s.system {
		secret, err := keyring.Get(serviceName, key)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", common.ErrCredentialsNotFound
		}
		if err != nil {
			return "", fmt.Errorf("reading %s from keyring: %w", key, err)
		}
		return secret, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.contents[key]
	if !ok {
		return "", common.ErrCredentialsNotFound
	}
	return secret, nil
}

// Delete removes the secret stored under key. Deleting a missing key is
// not an error.
func (s *Store) Delete(key string) error {
	if s.system {
		err := keyring.Delete(serviceName, key)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("deleting %s from keyring: %w", key, err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contents[key]; !ok {
		return nil
	}
	delete(s.contents, key)
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.Marshal(s.contents)
	if err != nil {
		return err
	}
	encrypted, err := s.encrypt(data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.file, encrypted, 0600)
}

func (s *Store) encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func (s *Store) decrypt(data []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	gcm, err := s.aead()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return plain, nil
}

func (s *Store) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

var _ common.CredentialStore = (*Store)(nil)
