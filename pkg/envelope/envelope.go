// Package envelope defines the uniform result shape returned for every tool
// call and the kind-tagged error taxonomy that feeds it.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ──────────────────────────────────────────────────────────────────────────────
// Error kinds
// ──────────────────────────────────────────────────────────────────────────────

const (
	KindUnknownTool              = "UnknownToolError"
	KindInvalidArguments         = "InvalidArgumentsError"
	KindMissingIdentity          = "MissingIdentityError"
	KindIdentityNotFound         = "IdentityNotFoundError"
	KindExternalStoreUnavailable = "ExternalStoreUnavailableError"
	KindMissingServiceCredential = "MissingServiceCredentialError"
	KindUpstream                 = "UpstreamError"
	KindUpstreamTimeout          = "UpstreamTimeoutError"
	KindDuplicateTool            = "DuplicateToolError"
)

// Error is a kind-tagged failure description. Every failure path in the
// dispatcher produces exactly one of these inside a Result.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`

	// Fields names the offending arguments for InvalidArgumentsError.
	Fields []string `json:"fields,omitempty"`

	// UpstreamCode carries the platform's own error token when the remote
	// API reported one (e.g. Slack's "channel_not_found").
	UpstreamCode string `json:"upstream_code,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ──────────────────────────────────────────────────────────────────────────────
// Error constructors
// ──────────────────────────────────────────────────────────────────────────────

func ErrUnknownTool(name string) *Error {
	return &Error{Kind: KindUnknownTool, Message: fmt.Sprintf("no tool registered under %q", name)}
}

func ErrInvalidArguments(fields []string, msg string) *Error {
	return &Error{Kind: KindInvalidArguments, Message: msg, Fields: fields}
}

func ErrMissingIdentity(tool string) *Error {
	return &Error{Kind: KindMissingIdentity, Message: fmt.Sprintf("tool %q requires a user_id", tool)}
}

func ErrIdentityNotFound(identity string) *Error {
	return &Error{Kind: KindIdentityNotFound, Message: fmt.Sprintf("no credential stored for identity %q", identity)}
}

func ErrExternalStoreUnavailable(err error) *Error {
	return &Error{Kind: KindExternalStoreUnavailable, Message: "identity store unreachable: " + err.Error()}
}

func ErrMissingServiceCredential() *Error {
	return &Error{Kind: KindMissingServiceCredential, Message: "no service credential was loaded at startup"}
}

func ErrUpstream(code, msg string) *Error {
	return &Error{Kind: KindUpstream, Message: msg, UpstreamCode: code}
}

func ErrUpstreamTimeout(op string) *Error {
	return &Error{Kind: KindUpstreamTimeout, Message: fmt.Sprintf("platform call %s timed out", op)}
}

func ErrDuplicateTool(name string) *Error {
	return &Error{Kind: KindDuplicateTool, Message: fmt.Sprintf("tool %q already registered", name)}
}

// AsError classifies err into an *Error, wrapping untagged failures as
// UpstreamError so nothing escapes the taxonomy.
func AsError(err error) *Error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return &Error{Kind: KindUpstream, Message: err.Error()}
}

// ──────────────────────────────────────────────────────────────────────────────
// Result — the only shape ever returned to callers
// ──────────────────────────────────────────────────────────────────────────────

// Result is the uniform success/error wrapper. Exactly one of Data / Err is
// populated; Wrap and Fail are the only constructors and both uphold that.
type Result struct {
	OK   bool           `json:"ok"`
	Data map[string]any `json:"data,omitempty"`
	Err  *Error         `json:"error,omitempty"`
}

// Wrap builds a success result. A nil data map becomes an empty object so the
// envelope always carries a data field on success.
func Wrap(data map[string]any) Result {
	if data == nil {
		data = map[string]any{}
	}
	return Result{OK: true, Data: data}
}

// Fail builds a failure result from any error, coercing it through AsError.
func Fail(err error) Result {
	return Result{OK: false, Err: AsError(err)}
}

// MarshalJSON guarantees the wire invariant — exactly one of data/error on
// the wire — even if a Result was constructed by hand with both sides set.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK {
		data := r.Data
		if data == nil {
			data = map[string]any{}
		}
		return json.Marshal(struct {
			OK   bool           `json:"ok"`
			Data map[string]any `json:"data"`
		}{true, data})
	}

	e := r.Err
	if e == nil {
		e = &Error{Kind: KindUpstream, Message: "unspecified failure"}
	}
	return json.Marshal(struct {
		OK  bool   `json:"ok"`
		Err *Error `json:"error"`
	}{false, e})
}
