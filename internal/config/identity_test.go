package config

import (
	"testing"
)

func TestLoadIdentityMissingFileReturnsZeroValue(t *testing.T) {
	root := t.TempDir()
	id, err := LoadIdentity(root)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if id != (Identity{}) {
		t.Errorf("LoadIdentity = %+v, want zero value", id)
	}
}

func TestSaveAndLoadIdentityRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := Identity{
		ClientID:    "client-abc123",
		LastWebDAV:  "https://dav.example.com",
		LastSlug:    "my-workspace",
		LastSyncUTC: 1700000000000,
	}
	if err := SaveIdentity(root, want); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}

	got, err := LoadIdentity(root)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if got != want {
		t.Errorf("LoadIdentity = %+v, want %+v", got, want)
	}
}

func TestNewClientIDIsUniqueAndPrefixed(t *testing.T) {
	a, err := NewClientID()
	if err != nil {
		t.Fatalf("NewClientID: %v", err)
	}
	b, err := NewClientID()
	if err != nil {
		t.Fatalf("NewClientID: %v", err)
	}
	if a == b {
		t.Errorf("NewClientID returned the same value twice: %q", a)
	}
	if len(a) != len("client-")+16 {
		t.Errorf("NewClientID length = %d, want %d", len(a), len("client-")+16)
	}
	if a[:7] != "client-" {
		t.Errorf("NewClientID = %q, want client- prefix", a)
	}
}
