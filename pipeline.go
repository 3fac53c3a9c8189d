package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pipeline drives a full restore: outer archive extraction, payload
// decryption, canonical rewrite, and the optional attachments branch.
type Pipeline struct {
	Passphrases PassphraseProvider
	Out         io.Writer
}

func NewPipeline(passphrases PassphraseProvider, out io.Writer) *Pipeline {
	return &Pipeline{Passphrases: passphrases, Out: out}
}

// Run restores the backup at archivePath into a directory named after the
// archive, next to it. The original archive file is never modified; the
// encrypted intermediates inside the destination are removed only after
// their decrypted counterparts are on disk, so an interrupted run can simply
// be repeated.
func (p *Pipeline) Run(archivePath string) error {
	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingInput, archivePath)
		}
		return fmt.Errorf("failed to stat %s: %w", archivePath, err)
	}

	zipPwd, err := p.Passphrases("Enter ZIP password: ", ZipPasswordEnvVar)
	if err != nil {
		return fmt.Errorf("failed to get ZIP password: %w", err)
	}
	defer zeroBytes(zipPwd)
	if len(zipPwd) == 0 {
		return fmt.Errorf("ZIP password cannot be empty")
	}

	encPwd, err := p.Passphrases("Enter encryption password: ", EncryptionPasswordEnvVar)
	if err != nil {
		return fmt.Errorf("failed to get encryption password: %w", err)
	}
	defer zeroBytes(encPwd)
	if len(encPwd) == 0 {
		return fmt.Errorf("encryption password cannot be empty")
	}

	dest := destinationDir(archivePath)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fmt.Fprintln(p.Out, "Extracting backup ZIP...")
	count, err := p.extractOuter(archivePath, dest, zipPwd)
	if err != nil {
		return fmt.Errorf("ZIP extraction failed: %w", err)
	}
	fmt.Fprintf(p.Out, "Extracted %d file(s) to %s\n", count, dest)

	payload, err := locatePayload(dest)
	if err != nil {
		return err
	}

	if err := p.decryptPayload(payload, encPwd); err != nil {
		return err
	}

	p.extractAttachments(dest)

	fmt.Fprintf(p.Out, "All done. Everything saved to %s\n", dest)
	return nil
}

// destinationDir is the archive's base name without its extension, alongside
// the archive itself.
func destinationDir(archivePath string) string {
	base := filepath.Base(archivePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(archivePath), stem)
}

func (p *Pipeline) extractOuter(path, dest string, password []byte) (int, error) {
	archive, err := OpenArchive(path)
	if err != nil {
		return 0, err
	}
	defer archive.Close()

	if entries := archive.Entries(); len(entries) > 0 {
		fmt.Fprintf(p.Out, "ZIP compression method: %s\n", entries[0].DisplayMethod())
	}
	return archive.ExtractAll(dest, password)
}

// locatePayload finds the encrypted JSON payload in dir. When several
// candidates exist the first in sorted filename order wins, so repeated runs
// pick the same file.
func locatePayload(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("failed to search for payload: %w", err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoPayloadFound, dir)
	}
	return matches[0], nil
}

// decryptPayload decrypts the payload file, re-serializes it with sorted
// keys, and removes the encrypted original once the decrypted copy has been
// written.
func (p *Pipeline) decryptPayload(path string, passphrase []byte) error {
	fmt.Fprintf(p.Out, "Decrypting %s...\n", filepath.Base(path))

	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	plaintext, err := decryptBlob(blob, passphrase)
	if err != nil {
		return err
	}

	var data any
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return fmt.Errorf("%w (wrong encryption password?): %v", ErrInvalidPlaintext, err)
	}

	// MarshalIndent sorts object keys, giving a deterministic canonical form.
	canonical, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize decrypted data: %w", err)
	}
	canonical = append(canonical, '\n')

	outPath := strings.TrimSuffix(path, ".json") + "_decrypted.json"
	if err := os.WriteFile(outPath, canonical, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove encrypted payload: %w", err)
	}

	fmt.Fprintf(p.Out, "Decrypted JSON saved to %s\n", outPath)
	return nil
}

// extractAttachments handles the optional nested attachments archive.
// Failures on this branch are reported but never fail the run: the primary
// payload is already restored.
func (p *Pipeline) extractAttachments(dest string) {
	matches, err := filepath.Glob(filepath.Join(dest, "attachments_*.zip"))
	if err != nil || len(matches) == 0 {
		fmt.Fprintln(p.Out, "No attachments ZIP found in backup")
		return
	}
	sort.Strings(matches)
	archivePath := matches[0]
	fmt.Fprintf(p.Out, "Found attachments ZIP: %s\n", filepath.Base(archivePath))

	password, err := p.Passphrases("Enter attachments ZIP password (press Enter to skip): ", AttachmentsPasswordEnvVar)
	if err != nil {
		fmt.Fprintf(p.Out, "Skipping attachments: %v\n", err)
		return
	}
	defer zeroBytes(password)
	if len(password) == 0 {
		fmt.Fprintln(p.Out, "Skipping attachments extraction")
		return
	}

	attachmentsDir := strings.TrimSuffix(archivePath, ".zip")
	if err := os.MkdirAll(attachmentsDir, 0o755); err != nil {
		fmt.Fprintf(p.Out, "Attachments extraction failed: %v\n", err)
		return
	}

	archive, err := OpenArchive(archivePath)
	if err != nil {
		fmt.Fprintf(p.Out, "Attachments extraction failed: %v\n", err)
		return
	}
	count, err := archive.ExtractAll(attachmentsDir, password)
	archive.Close()
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			fmt.Fprintln(p.Out, "Incorrect attachments password")
		} else {
			fmt.Fprintf(p.Out, "Attachments extraction failed: %v\n", err)
		}
		return
	}

	if err := os.Remove(archivePath); err != nil {
		fmt.Fprintf(p.Out, "Failed to remove attachments ZIP: %v\n", err)
		return
	}
	fmt.Fprintf(p.Out, "Extracted %d attachment(s) to %s\n", count, attachmentsDir)
}
