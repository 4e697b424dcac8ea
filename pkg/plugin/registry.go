package plugin

import (
	"context"
	"log/slog"
)

type Registry struct {
	plugins []Plugin
}

// NewRegistry keeps plugins in the order they get to see events.
func NewRegistry(plugins ...Plugin) *Registry {
	return &Registry{plugins: plugins}
}

// Dispatch runs the event through the plugins until one of them breaks the
// chain. The returned context holds the reply, if any plugin produced one.
func (r *Registry) Dispatch(ctx context.Context, event Event) *EventContext {
	ec := &EventContext{Event: event}

	for _, p := range r.plugins {
		slog.DebugContext(ctx, "Calling plugin", "plugin", p.Name(), "event", event.Kind.String())

		p.HandleEvent(ctx, ec)
		if ec.Action != ActionContinue {
			slog.DebugContext(ctx, "Plugin stopped the chain", "plugin", p.Name(), "action", ec.Action)
			break
		}
	}

	if ec.Reply == nil {
		slog.DebugContext(ctx, "No plugin replied", "event", event.Kind.String())
	}
	return ec
}
