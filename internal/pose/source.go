package pose

import "context"

// Source defines the interface for pose frame suppliers.
type Source interface {
	// Next returns the next frame in capture order.
	// Returns io.EOF when the source is exhausted.
	Next(ctx context.Context) (*Frame, error)

	// Close releases any resources held by the source.
	Close() error
}
