// Package security stores warehouse passwords outside the config file.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"salesdw/internal/common"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

const (
	keyringService = "salesdw"

	// KeyringEnv disables the OS keyring when set to "false", e.g. on
	// headless schedulers.
	KeyringEnv = "SALESDW_USE_KEYRING"

	saltSize         = 32
	pbkdf2Iterations = 100000
	keySize          = 32
)

// Store keeps one secret per account, in the OS keyring when available and
// otherwise in AES-GCM encrypted files under dir.
type Store struct {
	dir        string
	useKeyring bool
	masterKey  []byte
}

// NewStore opens the store. dir holds the encrypted fallback files.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir, useKeyring: keyringAvailable()}
	if !s.useKeyring {
		key, err := s.loadMasterKey()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCredentials, "Failed to initialize credential store").
				WithContext("dir", dir)
		}
		s.masterKey = key
	}
	return s, nil
}

// UsesKeyring reports whether secrets go to the OS keyring.
func (s *Store) UsesKeyring() bool { return s.useKeyring }

// Set stores secret for account, replacing any previous value.
func (s *Store) Set(account, secret string) error {
	if s.useKeyring {
		if err := keyring.Set(keyringService, account, secret); err != nil {
			return errors.Wrap(err, errors.ErrCodeCredentials, "Failed to store credential in keyring").
				WithContext("account", account)
		}
		return nil
	}

	sealed, err := s.encrypt(secret)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCredentials, "Failed to encrypt credential")
	}
	path, err := s.path(account)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, common.DirPermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create credentials directory")
	}
	if err := os.WriteFile(path, []byte(sealed), common.FilePermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write credential")
	}
	return nil
}

// Get returns the secret for account.
func (s *Store) Get(account string) (string, error) {
	if s.useKeyring {
		secret, err := keyring.Get(keyringService, account)
		if err != nil {
			return "", notFound(account, err)
		}
		return secret, nil
	}

	path, err := s.path(account)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path) // #nosec G304 - path is validated
	if err != nil {
		return "", notFound(account, err)
	}
	secret, err := s.decrypt(string(data))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCredentials, "Failed to decrypt credential").
			WithContext("account", account)
	}
	return secret, nil
}

// Delete removes the secret for account. A missing secret is not an error.
func (s *Store) Delete(account string) error {
	if s.useKeyring {
		if err := keyring.Delete(keyringService, account); err != nil && err != keyring.ErrNotFound {
			return errors.Wrap(err, errors.ErrCodeCredentials, "Failed to delete credential")
		}
		return nil
	}
	path, err := s.path(account)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to delete credential")
	}
	return nil
}

// Account names the secret of a warehouse login, e.g.
// "snowflake:etl@xy12345" or "postgres:etl@db.internal".
func Account(cfg models.Warehouse) string {
	host := cfg.Host
	if cfg.Driver == "snowflake" {
		host = cfg.Account
	}
	return fmt.Sprintf("%s:%s@%s", cfg.Driver, cfg.Username, host)
}

// NeedsPassword reports whether cfg expects a password the config file
// leaves out. File-based drivers and explicit DSNs need none.
func NeedsPassword(cfg models.Warehouse) bool {
	if cfg.Password != "" || cfg.DSN != "" || cfg.Username == "" {
		return false
	}
	return cfg.Driver == "snowflake" || cfg.Driver == "postgres"
}

// ResolvePassword fills cfg.Password from the store when NeedsPassword.
func ResolvePassword(s *Store, cfg *models.Warehouse) error {
	if !NeedsPassword(*cfg) {
		return nil
	}
	secret, err := s.Get(Account(*cfg))
	if err != nil {
		return err
	}
	cfg.Password = secret
	return nil
}

func notFound(account string, cause error) error {
	return errors.Wrap(cause, errors.ErrCodeCredentials, "No stored password for "+account).
		WithContext("account", account).
		WithSuggestions(
			"Run 'salesdw setup' to store the password",
			"Or set SALESDW_WAREHOUSE_PASSWORD",
		)
}

func (s *Store) path(account string) (string, error) {
	name := strings.NewReplacer(":", "_", "@", "_", "/", "_", "\\", "_").Replace(account) + ".cred"
	path, err := common.ValidatePath(filepath.Join(s.dir, name), s.dir)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid credential path")
	}
	return path, nil
}

func (s *Store) encrypt(plaintext string) (string, error) {
	gcm, err := newGCM(s.masterKey)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (s *Store) decrypt(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(s.masterKey)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// loadMasterKey reads the salt+key file, deriving and writing a new one on
// first use.
func (s *Store) loadMasterKey() ([]byte, error) {
	path, err := common.ValidatePath(filepath.Join(s.dir, ".master"), s.dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is validated
	if err == nil {
		if len(data) != saltSize+keySize {
			return nil, fmt.Errorf("invalid master key file size")
		}
		return data[saltSize:], nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := pbkdf2.Key([]byte(machineID()), salt, pbkdf2Iterations, keySize, sha256.New)

	if err := os.MkdirAll(s.dir, common.DirPermissionSecure); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, append(salt, key...), common.FilePermissionSecure); err != nil {
		return nil, err
	}
	return key, nil
}

func keyringAvailable() bool {
	if os.Getenv(KeyringEnv) == "false" {
		return false
	}
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	}
	return false
}

func machineID() string {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s-%s", hostname, user, runtime.GOOS, runtime.GOARCH)))
	return base64.StdEncoding.EncodeToString(sum[:])
}
