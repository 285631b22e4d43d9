// Package sender holds the channel sinks: the thin boundary between the
// dispatcher and the actual transports (SMTP, Discord REST). Rendering
// lives here too so every channel shows the same icons and colors.
package sender

import (
	"context"

	"cartographer-notify/internal/entity"
)

// Status is the per-channel diagnostic exposed by the service status
// endpoint.
type Status struct {
	Channel    entity.Channel `json:"channel"`
	Configured bool           `json:"configured"`
	Connected  bool           `json:"connected"`
}

// StatusReporter is implemented by every sink.
type StatusReporter interface {
	Status(ctx context.Context) Status
}
