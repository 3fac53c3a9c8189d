package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeka/zip"
)

// Archive is an open handle on a backup ZIP. Members may be protected with
// the WinZip AES extension, which the legacy stdlib reader cannot decrypt.
type Archive struct {
	rc *zip.ReadCloser
}

// OpenArchive opens the ZIP container at path.
func OpenArchive(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return &Archive{rc: rc}, nil
}

func (a *Archive) Close() error {
	return a.rc.Close()
}

// Entry describes one archive member as listed.
type Entry struct {
	Name      string
	Method    string
	Encrypted bool
}

// DisplayMethod renders the compression method for progress output.
func (e Entry) DisplayMethod() string {
	if e.Encrypted {
		return e.Method + ", AES encrypted"
	}
	return e.Method
}

// Entries lists the archive members in stored order.
func (a *Archive) Entries() []Entry {
	entries := make([]Entry, 0, len(a.rc.File))
	for _, f := range a.rc.File {
		entries = append(entries, Entry{
			Name:      f.Name,
			Method:    methodName(f.Method),
			Encrypted: f.IsEncrypted(),
		})
	}
	return entries
}

// methodName maps a ZIP compression method code to a display name.
// Unrecognized codes are reported, not rejected.
func methodName(code uint16) string {
	switch code {
	case 0:
		return "stored (no compression)"
	case 8:
		return "deflate"
	case 12:
		return "bzip2"
	case 14:
		return "lzma"
	case 93:
		return "zstandard"
	case 99:
		return "AES encrypted"
	default:
		return fmt.Sprintf("unknown (%d)", code)
	}
}

// ExtractAll writes every member beneath dest and returns the number of
// files written. An empty archive yields (0, nil). Password verification
// failures surface as ErrAuthenticationFailed.
func (a *Archive) ExtractAll(dest string, password []byte) (int, error) {
	count := 0
	for _, f := range a.rc.File {
		if err := extractFile(f, dest, password); err != nil {
			return count, err
		}
		if !f.FileInfo().IsDir() {
			count++
		}
	}
	return count, nil
}

func extractFile(f *zip.File, dest string, password []byte) error {
	if f.IsEncrypted() {
		f.SetPassword(string(password))
	}

	target := filepath.Join(dest, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("entry %q escapes destination directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return wrapZipError(f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(target) // never leave a half-written file behind
		return wrapZipError(f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

// wrapZipError distinguishes a wrong password from a corrupt archive. Unlike
// the inner blob, AES ZIP entries carry a password verifier and an HMAC, so
// this layer detects a bad password deterministically.
func wrapZipError(name string, err error) error {
	if errors.Is(err, zip.ErrPassword) || errors.Is(err, zip.ErrAuthentication) || errors.Is(err, zip.ErrDecryption) {
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, name)
	}
	return fmt.Errorf("failed to extract %s: %w", name, err)
}
