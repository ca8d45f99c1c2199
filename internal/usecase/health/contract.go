package health

import "context"

// BackendPinger checks backing search service availability.
type BackendPinger interface {
	Ping(ctx context.Context) error
}
