package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vitrinelabs/vitrine/core"
)

func TestMemoryCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	creds, err := store.Load(ctx)
	if err != nil || creds != nil {
		t.Fatalf("empty store Load() = %v, %v", creds, err)
	}

	saved := &core.Credentials{AccessToken: "T1", User: &core.User{ID: "7"}}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	creds, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if creds.AccessToken != "T1" || creds.User.ID != "7" {
		t.Errorf("Load() = %+v", creds)
	}

	// the loaded record is a copy, mutating it must not leak back
	creds.AccessToken = "tampered"
	reloaded, _ := store.Load(ctx)
	if reloaded.AccessToken != "T1" {
		t.Error("Load() must return a copy")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	creds, _ = store.Load(ctx)
	if creds != nil {
		t.Error("store should be empty after Clear()")
	}
}

func TestFileCredentialStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile", "credentials.json")
	store := NewFileCredentialStore(path)

	creds, err := store.Load(ctx)
	if err != nil || creds != nil {
		t.Fatalf("missing file Load() = %v, %v, want nil, nil", creds, err)
	}

	saved := &core.Credentials{
		AccessToken:  "T1",
		RefreshToken: "R1",
		User:         &core.User{ID: "7", Username: "a@b.com", Roles: []string{"ADMIN"}},
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	creds, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if creds.AccessToken != "T1" || creds.RefreshToken != "R1" || creds.User.Username != "a@b.com" {
		t.Errorf("Load() = %+v", creds)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	creds, err = store.Load(ctx)
	if err != nil || creds != nil {
		t.Errorf("Load() after Clear() = %v, %v, want nil, nil", creds, err)
	}

	// clearing an already-empty slot is fine
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear() on empty slot failed: %v", err)
	}
}

func TestFileCredentialStoreCorruptSlot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewFileCredentialStore(path)
	_, err := store.Load(ctx)
	if err == nil {
		t.Error("Load() on a corrupt slot must return an error")
	}
}
