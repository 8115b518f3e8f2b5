package ports

import "context"

// Checker probes one external dependency. A nil error means it is reachable.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}
