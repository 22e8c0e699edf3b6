// Package credential persists the provisioned Security, Server and Access
// Control objects encrypted with age.
//
// The key is either an age X25519 identity ("AGE-SECRET-KEY-1...") or a
// passphrase, which uses an scrypt recipient. The plaintext is the JSON
// source layer accepted by repository.Build.
//
// Load, Save and Delete never return errors. Every failure is logged and
// degrades to "no credentials", so a damaged file makes the client fall back
// to its configured bootstrap values instead of refusing to start.
package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// ErrNoKey is returned when encryption is attempted without a key.
var ErrNoKey = errors.New("credential key is empty")

// identityPrefix marks an age X25519 secret key.
const identityPrefix = "AGE-SECRET-KEY-1"

// Store is a credential file protected by Key.
type Store struct {
	Path string
	Key  string

	// WorkFactor is the scrypt work factor (log2 N) for passphrase keys.
	// Zero uses the age default.
	WorkFactor int

	Logger *slog.Logger
}

// Load reads the credential layer. It reports false when the file is
// missing or cannot be decrypted or parsed.
func (s *Store) Load() (map[string]any, bool) {
	if s == nil || s.Path == "" {
		return nil, false
	}
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, false
	}
	if err != nil {
		s.logger().Warn("read credentials", "path", s.Path, "error", err)
		return nil, false
	}

	plaintext, err := s.decrypt(data)
	if err != nil {
		s.logger().Warn("decrypt credentials", "path", s.Path, "error", err)
		return nil, false
	}

	var creds map[string]any
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		s.logger().Warn("parse credentials", "path", s.Path, "error", err)
		return nil, false
	}
	delete(creds, "version")
	if len(creds) == 0 {
		return nil, false
	}
	return creds, true
}

// Save encrypts creds and replaces the credential file. creds may be a
// map or an already encoded JSON document.
func (s *Store) Save(creds any) bool {
	if s == nil || s.Path == "" {
		return false
	}

	plaintext, err := plaintextOf(creds)
	if err != nil {
		s.logger().Warn("encode credentials", "error", err)
		return false
	}
	ciphertext, err := s.encrypt(plaintext)
	if err != nil {
		s.logger().Warn("encrypt credentials", "error", err)
		return false
	}
	if err := writeAtomic(s.Path, ciphertext); err != nil {
		s.logger().Warn("write credentials", "path", s.Path, "error", err)
		return false
	}
	s.logger().Info("credentials saved", "path", s.Path)
	return true
}

// Delete removes the credential file. A missing file counts as deleted.
func (s *Store) Delete() bool {
	if s == nil || s.Path == "" {
		return false
	}
	err := os.Remove(s.Path)
	if err != nil && !os.IsNotExist(err) {
		s.logger().Warn("delete credentials", "path", s.Path, "error", err)
		return false
	}
	return true
}

// Load reads the credentials at path with key.
func Load(path, key string) (map[string]any, bool) {
	return (&Store{Path: path, Key: key}).Load()
}

// Save writes creds to path encrypted with key.
func Save(path, key string, creds any) bool {
	return (&Store{Path: path, Key: key}).Save(creds)
}

// Delete removes the credentials at path.
func Delete(path string) bool {
	return (&Store{Path: path}).Delete()
}

func (s *Store) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Store) recipient() (age.Recipient, error) {
	if s.Key == "" {
		return nil, ErrNoKey
	}
	if strings.HasPrefix(s.Key, identityPrefix) {
		id, err := age.ParseX25519Identity(s.Key)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
		return id.Recipient(), nil
	}
	r, err := age.NewScryptRecipient(s.Key)
	if err != nil {
		return nil, err
	}
	if s.WorkFactor > 0 {
		r.SetWorkFactor(s.WorkFactor)
	}
	return r, nil
}

func (s *Store) identity() (age.Identity, error) {
	if s.Key == "" {
		return nil, ErrNoKey
	}
	if strings.HasPrefix(s.Key, identityPrefix) {
		id, err := age.ParseX25519Identity(s.Key)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
		return id, nil
	}
	return age.NewScryptIdentity(s.Key)
}

func (s *Store) encrypt(plaintext []byte) ([]byte, error) {
	r, err := s.recipient()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Store) decrypt(ciphertext []byte) ([]byte, error) {
	id, err := s.identity()
	if err != nil {
		return nil, err
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), id)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return io.ReadAll(r)
}

func plaintextOf(creds any) ([]byte, error) {
	switch v := creds.(type) {
	case nil:
		return nil, errors.New("no credentials to save")
	case []byte:
		if !json.Valid(v) {
			return nil, errors.New("credentials are not valid JSON")
		}
		return v, nil
	case string:
		return plaintextOf([]byte(v))
	}
	return json.Marshal(creds)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
