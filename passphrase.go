package main

import (
	"fmt"
	"os"
	"runtime"
	"syscall"

	"golang.org/x/term"
)

// PassphraseProvider supplies one secret per call. The pipeline asks it for
// the ZIP, encryption and attachments passwords in turn; tests substitute a
// provider with fixed values instead of a terminal.
type PassphraseProvider func(prompt, envVar string) ([]byte, error)

// zeroBytes overwrites a byte slice with zeros
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// terminalPassphrase reads a secret without echoing it. The environment
// variable, when set, takes precedence over the prompt so the tool can run
// non-interactively.
func terminalPassphrase(prompt, envVar string) ([]byte, error) {
	if envPass, ok := os.LookupEnv(envVar); ok {
		return []byte(envPass), nil
	}
	return readPassword(prompt, envVar)
}

func readPassword(prompt, envVar string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	var passphrase []byte
	var err error

	if term.IsTerminal(int(syscall.Stdin)) {
		// STDIN is a terminal, use secure input
		passphrase, err = term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr) // Print newline after password input
	} else {
		// STDIN is not a terminal (piped), try to read from /dev/tty
		tty, ttyErr := os.Open("/dev/tty")
		if ttyErr != nil {
			// On Windows or when /dev/tty is not available
			if runtime.GOOS == "windows" {
				return nil, fmt.Errorf("passphrase must be set via %s environment variable when STDIN is piped", envVar)
			}
			return nil, fmt.Errorf("cannot read passphrase: STDIN is piped and /dev/tty is not available. Set %s environment variable", envVar)
		}
		defer tty.Close()

		fd := int(tty.Fd())
		passphrase, err = term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr) // Print newline after password input
	}

	if err != nil {
		return nil, err
	}

	return passphrase, nil
}
