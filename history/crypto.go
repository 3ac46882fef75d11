package history

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// fileMagic identifies the on-disk format: magic || nonce || ciphertext,
// AES-256-GCM.
var fileMagic = []byte("VAHC1")

const keySize = 32

// EncryptionError wraps crypto failures on the history file so callers can
// tell them apart from plain filesystem errors.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("history %s failed: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

func newKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	return key, nil
}

func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &EncryptionError{Op: "encrypt", Err: fmt.Errorf("cipher: %w", err)}
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &EncryptionError{Op: "encrypt", Err: fmt.Errorf("gcm: %w", err)}
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, &EncryptionError{Op: "encrypt", Err: fmt.Errorf("nonce: %w", err)}
	}

	out := make([]byte, 0, len(fileMagic)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, fileMagic...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)

	return out, nil
}

func decrypt(key, blob []byte) ([]byte, error) {
	if !bytes.HasPrefix(blob, fileMagic) {
		return nil, &EncryptionError{Op: "decrypt", Err: fmt.Errorf("unrecognized history format")}
	}
	blob = blob[len(fileMagic):]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &EncryptionError{Op: "decrypt", Err: fmt.Errorf("cipher: %w", err)}
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &EncryptionError{Op: "decrypt", Err: fmt.Errorf("gcm: %w", err)}
	}

	if len(blob) < gcm.NonceSize() {
		return nil, &EncryptionError{Op: "decrypt", Err: fmt.Errorf("history file too short")}
	}

	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &EncryptionError{Op: "decrypt", Err: err}
	}

	return plaintext, nil
}
