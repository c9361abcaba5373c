// Package credentials resolves the secret a tool call runs under: either the
// single service secret loaded at process start, or a per-identity secret
// fetched from the external token service on every call.
package credentials

import (
	"context"
	"fmt"

	"github.com/mpopa/slackgate/pkg/envelope"
	"github.com/mpopa/slackgate/pkg/registry"
)

// SecretStore is the external identity store boundary.
type SecretStore interface {
	// LookupSecret returns the current secret for the identity. It returns
	// an IdentityNotFoundError-tagged error when the store holds no secret
	// for the identity, and an ExternalStoreUnavailableError-tagged error
	// on transport failure.
	LookupSecret(ctx context.Context, identity string) (string, error)
}

// Resolver is a pure lookup: it owns nothing beyond the service secret and a
// handle to the store. User secrets are never cached across calls, so a
// revocation in the store takes effect on the very next call.
type Resolver struct {
	service string
	store   SecretStore
}

// NewResolver creates a resolver. serviceSecret may be empty when the process
// was started without one; service-class resolution then fails per call.
func NewResolver(serviceSecret string, store SecretStore) *Resolver {
	return &Resolver{service: serviceSecret, store: store}
}

// Resolve returns the secret for the given credential class. identity is only
// consulted for the user class.
func (r *Resolver) Resolve(ctx context.Context, class registry.CredentialClass, identity string) (string, error) {
	switch class {
	case registry.CredentialService:
		if r.service == "" {
			return "", envelope.ErrMissingServiceCredential()
		}
		return r.service, nil

	case registry.CredentialUser:
		if identity == "" {
			return "", &envelope.Error{
				Kind:    envelope.KindMissingIdentity,
				Message: "user-class resolution requires an identity reference",
			}
		}
		if r.store == nil {
			return "", envelope.ErrExternalStoreUnavailable(fmt.Errorf("no identity store configured"))
		}
		return r.store.LookupSecret(ctx, identity)

	default:
		return "", fmt.Errorf("unknown credential class %q", class)
	}
}
