package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, f := range e.Fields {
		sb.WriteString("\n--> ")
		sb.WriteString(f)
	}
	return sb.String()
}

// Validate checks values that have no sensible default
func (c *CollabdConfig) Validate() error {
	var fields []string

	switch c.Session.Type {
	case "memory", "db":
	case "redis":
		if c.Session.Redis.Addr == "" {
			fields = append(fields, "session.redis.addr is required for redis session storage")
		}
	default:
		fields = append(fields, fmt.Sprintf("session.type %q is not one of memory, redis, db", c.Session.Type))
	}

	switch c.Database.Type {
	case "sqlite", "mysql", "postgres":
	default:
		fields = append(fields, fmt.Sprintf("database.type %q is not one of sqlite, mysql, postgres", c.Database.Type))
	}

	if c.Collaboration.MaxEvents < 0 {
		fields = append(fields, "collaboration.max_events must not be negative")
	}
	if c.Tracing.SamplerRate < 0 || c.Tracing.SamplerRate > 1 {
		fields = append(fields, "tracing.sampler_rate must be within [0, 1]")
	}

	if len(fields) > 0 {
		return &ValidationError{Message: "invalid collabd configuration", Fields: fields}
	}
	return nil
}
