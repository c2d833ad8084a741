package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
type LogFields struct {
	RunID     string // One per invocation
	Platform  string // "github" or "gitlab"
	Project   string // Project currently being processed
	Component string // e.g. "sync.fetcher", "sync.reconciler"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.RunID != "" {
		result.RunID = new.RunID
	}
	if new.Platform != "" {
		result.Platform = new.Platform
	}
	if new.Project != "" {
		result.Project = new.Project
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}
