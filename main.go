package main

import (
	"fmt"
	"os"
)

const (
	Version = "1.0.0"

	// Environment variables consulted before prompting interactively
	ZipPasswordEnvVar         = "LAZYRESTORE_ZIP_PASSWORD"
	EncryptionPasswordEnvVar  = "LAZYRESTORE_ENCRYPTION_PASSWORD"
	AttachmentsPasswordEnvVar = "LAZYRESTORE_ATTACHMENTS_PASSWORD"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) == 2 {
		switch os.Args[1] {
		case "--help", "-h":
			printUsage()
			return nil
		case "--version", "-v":
			fmt.Fprintf(os.Stderr, "lazyrestore version %s\n", Version)
			return nil
		}
	}

	if len(os.Args) != 2 {
		printUsage()
		return fmt.Errorf("expected exactly one backup archive path")
	}

	pipeline := NewPipeline(terminalPassphrase, os.Stdout)
	return pipeline.Run(os.Args[1])
}

func printUsage() {
	usage := `lazyrestore - Decrypt a two-layer encrypted backup

USAGE:
    lazyrestore <backup.zip>

The backup is an AES-encrypted ZIP holding a single AES-CFB encrypted JSON
payload and, optionally, a nested attachments_*.zip protected with its own
password. Results are written to a directory named after the archive, next
to it.

PASSWORDS:
    Prompted interactively (no echo), or set via environment variables:
        LAZYRESTORE_ZIP_PASSWORD            outer archive password
        LAZYRESTORE_ENCRYPTION_PASSWORD     payload encryption password
        LAZYRESTORE_ATTACHMENTS_PASSWORD    attachments password (optional)

    Pressing Enter at the attachments prompt skips attachments extraction.

EXAMPLES:
    lazyrestore bw-backup_2024_01_02_03_04_05.zip

SECURITY:
    - Payload key derived with Argon2i (t=3, m=64MiB, p=1)
    - Payload is AES-256-CFB; a wrong password yields garbage, detected
      only when the result fails to parse as JSON
    - The original backup archive is never modified

`
	fmt.Fprint(os.Stderr, usage)
}
