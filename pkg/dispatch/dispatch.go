// Package dispatch routes incoming tool calls: registry lookup, argument
// validation, credential resolution, handler invocation, envelope wrapping —
// always in that order, so a malformed request never costs an identity-store
// round trip or a platform call.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpopa/slackgate/pkg/envelope"
	"github.com/mpopa/slackgate/pkg/registry"
)

// identityField is the argument that names the caller identity on user-class
// tools. It is stripped before the handler runs.
const identityField = "user_id"

// CredentialResolver resolves the secret for a credential class.
type CredentialResolver interface {
	Resolve(ctx context.Context, class registry.CredentialClass, identity string) (string, error)
}

// Invocation is the per-call unit of work. It lives for one Dispatch call and
// is never shared, reused, or persisted.
type Invocation struct {
	ID        string
	Tool      string
	Arguments map[string]any
	Identity  string
}

// Dispatcher owns no mutable state: the registry is frozen before dispatch
// begins and the resolver holds only the immutable service secret, so
// concurrent dispatches need no synchronization.
type Dispatcher struct {
	registry *registry.Registry
	resolver CredentialResolver
	log      *slog.Logger

	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a dispatcher over a frozen registry.
func New(reg *registry.Registry, resolver CredentialResolver, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	meter := otel.Meter("github.com/mpopa/slackgate/pkg/dispatch")
	calls, err := meter.Int64Counter("slackgate.dispatch.total",
		metric.WithDescription("Tool invocations by tool and outcome kind."))
	if err != nil {
		log.Warn("dispatch counter init failed", "error", err)
	}
	duration, err := meter.Float64Histogram("slackgate.dispatch.duration",
		metric.WithDescription("Tool invocation duration."),
		metric.WithUnit("s"))
	if err != nil {
		log.Warn("dispatch histogram init failed", "error", err)
	}
	return &Dispatcher{
		registry: reg,
		resolver: resolver,
		log:      log,
		calls:    calls,
		duration: duration,
	}
}

// Dispatch runs one tool call and always returns a well-formed envelope; no
// error ever escapes this boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, args map[string]any) envelope.Result {
	start := time.Now()
	inv := &Invocation{
		ID:        uuid.NewString(),
		Tool:      toolName,
		Arguments: args,
	}

	result := d.run(ctx, inv)
	d.observe(ctx, inv, result, time.Since(start))
	return result
}

func (d *Dispatcher) run(ctx context.Context, inv *Invocation) envelope.Result {
	// 1. Registry lookup.
	def, err := d.registry.Lookup(inv.Tool)
	if err != nil {
		return envelope.Fail(err)
	}

	// 2. Schema validation. Pure: no network, no store.
	validated, err := validateArguments(def, inv.Arguments)
	if err != nil {
		return envelope.Fail(err)
	}

	// 3. Identity extraction for user-class tools.
	if def.Credential == registry.CredentialUser {
		identity, _ := inv.Arguments[identityField].(string)
		if identity == "" {
			return envelope.Fail(envelope.ErrMissingIdentity(inv.Tool))
		}
		inv.Identity = identity
		delete(validated, identityField)
	}

	// 4. Credential resolution. Fetched fresh on every user-class call so a
	// revocation in the store takes effect immediately.
	secret, err := d.resolver.Resolve(ctx, def.Credential, inv.Identity)
	if err != nil {
		return envelope.Fail(err)
	}

	// 5. Handler invocation against the remote platform.
	data, err := def.Handler(ctx, secret, validated)
	if err != nil {
		return envelope.Fail(err)
	}

	// 6. Success.
	return envelope.Wrap(data)
}

func (d *Dispatcher) observe(ctx context.Context, inv *Invocation, result envelope.Result, elapsed time.Duration) {
	outcome := "ok"
	if !result.OK {
		outcome = result.Err.Kind
	}

	attrs := metric.WithAttributes(
		attribute.String("tool", inv.Tool),
		attribute.String("outcome", outcome),
	)
	if d.calls != nil {
		d.calls.Add(ctx, 1, attrs)
	}
	if d.duration != nil {
		d.duration.Record(ctx, elapsed.Seconds(), attrs)
	}

	if result.OK {
		d.log.InfoContext(ctx, "tool dispatched",
			"invocation_id", inv.ID,
			"tool", inv.Tool,
			"duration_ms", elapsed.Milliseconds(),
		)
		return
	}
	d.log.WarnContext(ctx, "tool dispatch failed",
		"invocation_id", inv.ID,
		"tool", inv.Tool,
		"kind", result.Err.Kind,
		"duration_ms", elapsed.Milliseconds(),
	)
}
