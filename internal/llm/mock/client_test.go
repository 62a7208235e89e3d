package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/kitbuilder587/webctx/internal/llm"
)

func TestClient_GenerateSequence(t *testing.T) {
	c := New().WithGenerations("first", "second").WithResponse("fallback").WithCost(0.01)

	want := []string{"first", "second", "fallback"}
	for i, w := range want {
		gen, err := c.Generate(context.Background(), llm.GenerateRequest{Prompt: "p"})
		if err != nil {
			t.Fatalf("Generate() #%d error = %v", i, err)
		}
		if gen.Content != w {
			t.Errorf("Generate() #%d = %q, want %q", i, gen.Content, w)
		}
		if gen.Cost != 0.01 {
			t.Errorf("Cost = %v", gen.Cost)
		}
	}

	if _, gen := c.Calls(); gen != 3 {
		t.Errorf("generate calls = %d, want 3", gen)
	}
}

func TestClient_Errors(t *testing.T) {
	boom := errors.New("boom")
	c := New().WithError(boom).WithGenerateError(boom)

	if _, err := c.CompleteWithSystem(context.Background(), "s", "p"); err != boom {
		t.Errorf("CompleteWithSystem() error = %v", err)
	}
	if _, err := c.Generate(context.Background(), llm.GenerateRequest{}); err != boom {
		t.Errorf("Generate() error = %v", err)
	}

	c.Reset()
	if complete, gen := c.Calls(); complete != 0 || gen != 0 {
		t.Error("Reset() did not clear counters")
	}
}
