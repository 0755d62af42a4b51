package store

import (
	"errors"
	"os"
	"strings"
)

// DefaultUnlockSecret seeds the unlock file on first start so the privileged
// search mode works out of the box. Deployments are expected to replace it.
const DefaultUnlockSecret = "NB2WY3DPEHPK3PXPJBSWY3DP"

// ReadUnlockSecret returns the deployment-wide unlock secret. An empty
// result means no unlock secret is configured and escalation is disabled.
func ReadUnlockSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// EnsureUnlockSecret writes the default secret when the file is absent.
func EnsureUnlockSecret(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return writeFileAtomic(path, []byte(DefaultUnlockSecret+"\n"))
}
