package llm

import (
	"context"
	"testing"
)

func TestExtractJSONPlain(t *testing.T) {
	got, err := ExtractJSON(`{"intent": "follow_up"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"intent": "follow_up"}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	raw := "```json\n{\"fico\": 740}\n```"
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"fico": 740}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONWithProse(t *testing.T) {
	raw := `Here is the result: {"a": {"b": 1}} hope that helps`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a": {"b": 1}}` {
		t.Errorf("nested object not matched: %q", got)
	}
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	raw := `{"note": "use {curly} braces", "ok": true}`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != raw {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONErrors(t *testing.T) {
	if _, err := ExtractJSON("no object here"); err == nil {
		t.Error("expected error for missing object")
	}
	if _, err := ExtractJSON(`{"unterminated": true`); err == nil {
		t.Error("expected error for unterminated object")
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Intent string `json:"intent"`
	}
	if err := Decode("```json\n{\"intent\": \"summary_request\"}\n```", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Intent != "summary_request" {
		t.Errorf("intent = %q", out.Intent)
	}

	if err := Decode(`{"intent": }`, &out); err == nil {
		t.Error("expected parse error")
	}
}

type fixedClient struct {
	response string
	err      error
}

func (c *fixedClient) Complete(ctx context.Context, req Request) (string, error) {
	return c.response, c.err
}

func TestCompleteJSON(t *testing.T) {
	var out struct {
		Fico int `json:"fico"`
	}
	client := &fixedClient{response: "Sure!\n```json\n{\"fico\": 680}\n```"}
	if err := CompleteJSON(context.Background(), client, Request{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Fico != 680 {
		t.Errorf("fico = %d", out.Fico)
	}
}
