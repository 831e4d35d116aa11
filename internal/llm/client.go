// Package llm provides the completion client used by the classifier, the
// fact extractor, and the agent pipeline. Structured responses are parsed
// against the caller's schema; a parse failure surfaces as an error
// value, never a panic.
package llm

import "context"

// Shape is the response-shape hint for a completion request.
type Shape string

const (
	ShapeStructured Shape = "structured" // JSON object expected
	ShapeFreeText   Shape = "free_text"
)

// Request is a single completion request.
type Request struct {
	System      string
	User        string
	Shape       Shape
	Temperature float64
	MaxTokens   int
}

// Client is the minimal interface the core uses to call a completion
// service. Implementations fail closed with an error value.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleteJSON runs a structured completion and unmarshals the response
// into out. Any transport or parse failure is returned as an error; out
// is untouched on failure.
func CompleteJSON(ctx context.Context, c Client, req Request, out any) error {
	req.Shape = ShapeStructured
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	return Decode(raw, out)
}
