// Package keyring keeps secrets such as the PostgreSQL connection string in the OS
// keyring instead of the config file.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/3grands/habitflow/internal/constants"
)

var (
	// ErrNotFound is returned when the entry does not exist
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be reached
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Entry is one secret addressed by service and user.
type Entry struct {
	Service string
	User    string
}

// ConnectionString is the entry holding the server's database connection string.
var ConnectionString = Entry{Service: constants.AppName, User: constants.DefaultKeyringUser}

func (e Entry) Get() (string, error) {
	secret, err := keyring.Get(e.Service, e.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func (e Entry) Set(secret string) error {
	if secret == "" {
		return errors.New("secret cannot be empty")
	}
	if err := keyring.Set(e.Service, e.User, secret); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func (e Entry) Delete() error {
	if err := keyring.Delete(e.Service, e.User); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// IsAvailable probes the keyring with a read. A missing entry still means the keyring
// works.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "probe-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
