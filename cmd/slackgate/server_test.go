package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mpopa/slackgate/pkg/envelope"
	"github.com/mpopa/slackgate/pkg/registry"
)

type stubDispatcher struct {
	result envelope.Result
	calls  int
	tool   string
	args   map[string]any
}

func (s *stubDispatcher) Dispatch(_ context.Context, toolName string, args map[string]any) envelope.Result {
	s.calls++
	s.tool = toolName
	s.args = args
	return s.result
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	err := reg.Register(registry.ToolDefinition{
		Name:       "slack_send_message",
		Schema:     []registry.Field{{Name: "channel_id", Type: registry.TypeString, Required: true}},
		Credential: registry.CredentialService,
		Handler: func(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()
	return reg
}

func TestHandleCallTool_Success(t *testing.T) {
	stub := &stubDispatcher{result: envelope.Wrap(map[string]any{"timestamp": "1.0"})}
	srv := NewServer(ServerConfig{Dispatcher: stub, Registry: testRegistry(t), PerCallerLimit: 100})

	body := `{"tool":"slack_send_message","arguments":{"channel_id":"C123456","text":"Hello"}}`
	req := httptest.NewRequest("POST", "/v1/tools/call", strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.HandleCallTool(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if stub.tool != "slack_send_message" || stub.args["channel_id"] != "C123456" {
		t.Errorf("dispatcher received %s %+v", stub.tool, stub.args)
	}

	var result map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("expected ok envelope, got %s", rr.Body.String())
	}
}

func TestHandleCallTool_FailureEnvelopeStillHTTP200(t *testing.T) {
	stub := &stubDispatcher{result: envelope.Fail(envelope.ErrUnknownTool("nope"))}
	srv := NewServer(ServerConfig{Dispatcher: stub, Registry: testRegistry(t), PerCallerLimit: 100})

	req := httptest.NewRequest("POST", "/v1/tools/call", strings.NewReader(`{"tool":"nope","arguments":{}}`))
	rr := httptest.NewRecorder()
	srv.HandleCallTool(rr, req)

	// Tool-level failures ride inside the envelope, not the status code.
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var result struct {
		OK  bool            `json:"ok"`
		Err *envelope.Error `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.OK || result.Err == nil || result.Err.Kind != envelope.KindUnknownTool {
		t.Errorf("expected %s envelope, got %s", envelope.KindUnknownTool, rr.Body.String())
	}
}

func TestHandleCallTool_MalformedJSON(t *testing.T) {
	stub := &stubDispatcher{}
	srv := NewServer(ServerConfig{Dispatcher: stub, Registry: testRegistry(t), PerCallerLimit: 100})

	req := httptest.NewRequest("POST", "/v1/tools/call", strings.NewReader(`{"tool": `))
	rr := httptest.NewRecorder()
	srv.HandleCallTool(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if stub.calls != 0 {
		t.Errorf("dispatcher invoked %d times for malformed framing", stub.calls)
	}
}

func TestHandleCallTool_MissingToolName(t *testing.T) {
	stub := &stubDispatcher{}
	srv := NewServer(ServerConfig{Dispatcher: stub, Registry: testRegistry(t), PerCallerLimit: 100})

	req := httptest.NewRequest("POST", "/v1/tools/call", strings.NewReader(`{"arguments":{}}`))
	rr := httptest.NewRecorder()
	srv.HandleCallTool(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if stub.calls != 0 {
		t.Errorf("dispatcher invoked %d times without a tool name", stub.calls)
	}
}

func TestHandleCallTool_RateLimited(t *testing.T) {
	stub := &stubDispatcher{result: envelope.Wrap(nil)}
	srv := NewServer(ServerConfig{Dispatcher: stub, Registry: testRegistry(t), PerCallerLimit: 0})

	req := httptest.NewRequest("POST", "/v1/tools/call", strings.NewReader(`{"tool":"slack_send_message","arguments":{}}`))
	rr := httptest.NewRecorder()
	srv.HandleCallTool(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if stub.calls != 0 {
		t.Errorf("dispatcher invoked %d times past the rate limit", stub.calls)
	}
}

func TestHandleListTools_ExposesSurface(t *testing.T) {
	srv := NewServer(ServerConfig{Dispatcher: &stubDispatcher{}, Registry: testRegistry(t), PerCallerLimit: 100})

	req := httptest.NewRequest("GET", "/v1/tools", nil)
	rr := httptest.NewRecorder()
	srv.HandleListTools(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var listing struct {
		Tools []struct {
			Name            string `json:"name"`
			CredentialClass string `json:"credential_class"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Tools) != 1 || listing.Tools[0].Name != "slack_send_message" {
		t.Errorf("unexpected listing %s", rr.Body.String())
	}
	if listing.Tools[0].CredentialClass != "service" {
		t.Errorf("expected service class in listing, got %q", listing.Tools[0].CredentialClass)
	}
}
