// Package gpg provides detached OpenPGP signature verification.
package gpg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// ErrNoSignature is returned when a file has no detached signature next to it
var ErrNoSignature = errors.New("no detached signature found")

// signatureSuffixes are probed in order for a detached signature
var signatureSuffixes = []string{".sig", ".asc"}

// Verifier checks detached signatures against a fixed keyring
// using ProtonMail's go-crypto, the maintained openpgp fork
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile imports public keys from an armored or binary keyring file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath comes from configuration
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	return v.ImportKeys(data)
}

// ImportKeys imports public keys from armored or binary keyring data
func (v *Verifier) ImportKeys(data []byte) error {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		// Try reading as binary
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return fmt.Errorf("no keys found in file")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// SignaturePath returns the detached signature accompanying filePath
func SignaturePath(filePath string) (string, error) {
	for _, suffix := range signatureSuffixes {
		candidate := filePath + suffix
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: %w", filePath, ErrNoSignature)
}

// VerifyDetached verifies the detached signature found next to filePath
// and returns the identity names of the signing key
func (v *Verifier) VerifyDetached(filePath string) ([]string, error) {
	sigPath, err := SignaturePath(filePath)
	if err != nil {
		return nil, err
	}
	return v.VerifySignatureFromFile(filePath, sigPath)
}

// VerifySignatureFromFile verifies a detached signature stored in sigPath
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) ([]string, error) {
	if len(v.keyring) == 0 {
		return nil, fmt.Errorf("no keys imported")
	}

	//nolint:gosec // G304: sigPath is derived from a scanned binary path
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	//nolint:gosec // G304: filePath is a scanned binary path
	dataFile, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	// Peek at signature file to determine if it's armored
	peekBuf := make([]byte, 27)
	n, _ := io.ReadFull(sigFile, peekBuf)
	isArmored := n == 27 && string(peekBuf[:27]) == "-----BEGIN PGP SIGNATURE---"

	if _, seekErr := sigFile.Seek(0, io.SeekStart); seekErr != nil {
		return nil, fmt.Errorf("failed to reset signature file: %w", seekErr)
	}

	var signer *openpgp.Entity
	if isArmored {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, dataFile, sigFile, nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, dataFile, sigFile, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}

	return identityNames(signer), nil
}

// KeyringSize returns the number of keys in the keyring
func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}

func identityNames(e *openpgp.Entity) []string {
	if e == nil {
		return []string{}
	}
	names := make([]string, 0, len(e.Identities))
	for name := range e.Identities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
