package framework

import "context"

type taskContextKey struct{}

// TaskContext carries task metadata through contexts so telemetry from
// providers can be correlated to the dispatcher task that issued the call.
type TaskContext struct {
	ID    string
	Kind  string
	Model string
}

// WithTaskContext attaches task metadata to the context.
func WithTaskContext(ctx context.Context, task TaskContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskContextFrom extracts task metadata, if present.
func TaskContextFrom(ctx context.Context) (TaskContext, bool) {
	if ctx == nil {
		return TaskContext{}, false
	}
	val := ctx.Value(taskContextKey{})
	task, ok := val.(TaskContext)
	return task, ok
}
