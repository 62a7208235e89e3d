package enhancer

import (
	"strings"
	"testing"
)

func TestAcceptancePolicy_Accept(t *testing.T) {
	prev := "write a go http server"
	longer := prev + " with graceful shutdown and structured logging"

	tests := []struct {
		name   string
		policy AcceptancePolicy
		next   string
		want   bool
	}{
		{"empty rejected", AcceptancePolicy{}, "   ", false},
		{"zero policy accepts same length", AcceptancePolicy{}, prev, true},
		{"zero policy rejects shorter", AcceptancePolicy{}, "go server", false},
		{"delta met", AcceptancePolicy{MinLengthDelta: 20}, longer, true},
		{"delta not met", AcceptancePolicy{MinLengthDelta: 20}, prev + " quickly", false},
		{"structure required missing", AcceptancePolicy{RequireStructure: true}, longer, false},
		{"structure required heading", AcceptancePolicy{RequireStructure: true}, "## Goal\n" + longer, true},
		{"structure required numbered", AcceptancePolicy{RequireStructure: true}, longer + "\n1. handle SIGTERM", true},
		{"structure required bullet", AcceptancePolicy{RequireStructure: true}, longer + "\n- use zap", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Accept(prev, tt.next); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAcceptancePolicy_CountsRunes(t *testing.T) {
	p := AcceptancePolicy{MinLengthDelta: 5}
	// кириллица: 2 байта на символ, дельта считается в символах
	if p.Accept("сервер", "сервер да") {
		t.Error("3 extra runes should not pass delta 5")
	}
	if !p.Accept("сервер", "сервер на go!") {
		t.Error("7 extra runes should pass delta 5")
	}
}

func TestHasStructure(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"# Title", true},
		{"text\n  * item", true},
		{"• item", true},
		{"2) second", true},
		{"plain sentence. 1.5 is a number", false},
		{"#hashtag", false},
		{strings.Repeat("word ", 50), false},
	}
	for _, tt := range tests {
		if got := HasStructure(tt.in); got != tt.want {
			t.Errorf("HasStructure(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
