package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestEntryRoundTrip(t *testing.T) {
	gokeyring.MockInit()

	connStr := "postgres://habits@localhost:5432/habitflow?sslmode=disable"
	if err := ConnectionString.Set(connStr); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := ConnectionString.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != connStr {
		t.Errorf("Get() = %q, want %q", got, connStr)
	}

	if err := ConnectionString.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := ConnectionString.Get(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want %v", err, ErrNotFound)
	}
}

func TestEntryErrors(t *testing.T) {
	gokeyring.MockInit()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"set empty", func() error { return ConnectionString.Set("") }, nil},
		{"delete missing", func() error { return ConnectionString.Delete() }, ErrNotFound},
		{"get missing", func() error { _, err := ConnectionString.Get(); return err }, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEntriesAreIndependent(t *testing.T) {
	gokeyring.MockInit()

	other := Entry{Service: "habitflow", User: "other"}
	if err := other.Set("secret"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := ConnectionString.Get(); !errors.Is(err, ErrNotFound) {
		t.Errorf("entries should not share values, got %v", err)
	}
}

func TestIsAvailableWithMock(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() should be true with the mock keyring")
	}
}
