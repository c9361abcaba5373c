package auth

import "testing"

func TestKeyStore_Lookup(t *testing.T) {
	ks := NewKeyStore("scrum-agent:sk-abc,standup-bot:sk-def")

	caller, ok := ks.Lookup("sk-abc")
	if !ok || caller != "scrum-agent" {
		t.Errorf("expected scrum-agent, got %q (ok=%v)", caller, ok)
	}

	caller, ok = ks.Lookup("sk-def")
	if !ok || caller != "standup-bot" {
		t.Errorf("expected standup-bot, got %q (ok=%v)", caller, ok)
	}
}

func TestKeyStore_UnknownKey(t *testing.T) {
	ks := NewKeyStore("scrum-agent:sk-abc")
	if _, ok := ks.Lookup("sk-nope"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestKeyStore_EmptyConfig(t *testing.T) {
	ks := NewKeyStore("")
	if _, ok := ks.Lookup("anything"); ok {
		t.Error("empty store must reject every key")
	}
}

func TestKeyStore_TrimsWhitespace(t *testing.T) {
	ks := NewKeyStore(" scrum-agent : sk-abc , standup-bot:sk-def ")
	caller, ok := ks.Lookup("sk-abc")
	if !ok || caller != "scrum-agent" {
		t.Errorf("expected scrum-agent after trimming, got %q (ok=%v)", caller, ok)
	}
}
