package main

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2i cost parameters. These must match the encrypting side exactly:
	// the blob stores only the salt, so a mismatch here silently derives a
	// wrong key instead of failing.
	Argon2Time    = 3
	Argon2Memory  = 64 * 1024 // KiB
	Argon2Threads = 1
	Argon2KeyLen  = 32 // 256 bits for AES-256

	SaltLen = 16
	IVLen   = 16
)

// deriveKey derives the AES-256 key from a passphrase using Argon2i.
func deriveKey(passphrase, salt []byte) []byte {
	return argon2.Key(passphrase, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
}

// decryptBlob reverses the backup's payload encryption. The blob is
// base64url(salt[16] || iv[16] || ciphertext), the ciphertext being
// AES-256-CFB under a key derived from the passphrase and the embedded salt.
//
// CFB carries no authentication: a wrong passphrase still "succeeds" and
// yields garbage bytes. Callers detect that downstream when the result fails
// to parse.
func decryptBlob(blob, passphrase []byte) ([]byte, error) {
	data, err := decodeBase64URL(string(bytes.TrimSpace(blob)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	if len(data) < SaltLen+IVLen {
		return nil, fmt.Errorf("%w: decoded length %d is shorter than salt+iv", ErrMalformedBlob, len(data))
	}

	salt := data[:SaltLen]
	iv := data[SaltLen : SaltLen+IVLen]
	ciphertext := data[SaltLen+IVLen:]

	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// decodeBase64URL accepts both padded and unpadded url-safe base64.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
