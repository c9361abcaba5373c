package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/mpopa/slackgate/pkg/envelope"
	"github.com/mpopa/slackgate/pkg/registry"
)

type fakeStore struct {
	secrets map[string]string
	calls   int
}

func (f *fakeStore) LookupSecret(_ context.Context, identity string) (string, error) {
	f.calls++
	secret, ok := f.secrets[identity]
	if !ok {
		return "", envelope.ErrIdentityNotFound(identity)
	}
	return secret, nil
}

func TestResolve_ServiceSecret(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver("xoxb-service", store)

	secret, err := r.Resolve(context.Background(), registry.CredentialService, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "xoxb-service" {
		t.Errorf("expected service secret, got %q", secret)
	}
	if store.calls != 0 {
		t.Errorf("identity store consulted %d times for a service resolution", store.calls)
	}
}

func TestResolve_ServiceIgnoresIdentity(t *testing.T) {
	store := &fakeStore{secrets: map[string]string{"alice": "xoxp-alice"}}
	r := NewResolver("xoxb-service", store)

	secret, err := r.Resolve(context.Background(), registry.CredentialService, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "xoxb-service" {
		t.Errorf("expected service secret regardless of identity, got %q", secret)
	}
	if store.calls != 0 {
		t.Errorf("identity store consulted %d times for a service resolution", store.calls)
	}
}

func TestResolve_MissingServiceCredential(t *testing.T) {
	r := NewResolver("", &fakeStore{})

	_, err := r.Resolve(context.Background(), registry.CredentialService, "")
	var tagged *envelope.Error
	if !errors.As(err, &tagged) || tagged.Kind != envelope.KindMissingServiceCredential {
		t.Fatalf("expected %s, got %v", envelope.KindMissingServiceCredential, err)
	}
}

func TestResolve_UserRequiresIdentity(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver("xoxb-service", store)

	_, err := r.Resolve(context.Background(), registry.CredentialUser, "")
	var tagged *envelope.Error
	if !errors.As(err, &tagged) || tagged.Kind != envelope.KindMissingIdentity {
		t.Fatalf("expected %s, got %v", envelope.KindMissingIdentity, err)
	}
	if store.calls != 0 {
		t.Errorf("identity store consulted %d times without an identity", store.calls)
	}
}

func TestResolve_UserFetchesFromStore(t *testing.T) {
	store := &fakeStore{secrets: map[string]string{"alice": "xoxp-alice"}}
	r := NewResolver("xoxb-service", store)

	secret, err := r.Resolve(context.Background(), registry.CredentialUser, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "xoxp-alice" {
		t.Errorf("expected user secret, got %q", secret)
	}
	if store.calls != 1 {
		t.Errorf("expected exactly one store round trip, got %d", store.calls)
	}
}

func TestResolve_UserNeverCached(t *testing.T) {
	store := &fakeStore{secrets: map[string]string{"alice": "xoxp-alice-v1"}}
	r := NewResolver("xoxb-service", store)

	if _, err := r.Resolve(context.Background(), registry.CredentialUser, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The store rotates the secret; the next resolution must see it.
	store.secrets["alice"] = "xoxp-alice-v2"
	secret, err := r.Resolve(context.Background(), registry.CredentialUser, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "xoxp-alice-v2" {
		t.Errorf("stale secret %q returned after rotation", secret)
	}
	if store.calls != 2 {
		t.Errorf("expected 2 store round trips, got %d", store.calls)
	}
}

func TestResolve_UserWithoutStore(t *testing.T) {
	r := NewResolver("xoxb-service", nil)

	_, err := r.Resolve(context.Background(), registry.CredentialUser, "alice")
	var tagged *envelope.Error
	if !errors.As(err, &tagged) || tagged.Kind != envelope.KindExternalStoreUnavailable {
		t.Fatalf("expected %s, got %v", envelope.KindExternalStoreUnavailable, err)
	}
}
