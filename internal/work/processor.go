package work

import (
	"context"

	"capstan/internal/queue"
)

// Processor describes the contract the batch runner needs from each work kind.
type Processor interface {
	Kind() string
	Process(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
