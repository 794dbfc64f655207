// Package render declares the contract-PDF renderer the contract service
// depends on. No renderer ships with the server; one can be plugged in by
// the embedding program.
package render

import "context"

// Renderer turns an HTML document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Func adapts an ordinary function to Renderer.
type Func func(ctx context.Context, html string) ([]byte, error)

func (f Func) Render(ctx context.Context, html string) ([]byte, error) {
	return f(ctx, html)
}
