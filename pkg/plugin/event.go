// Package plugin is the contract between the bot and its event handlers.
package plugin

import (
	"context"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
)

type EventKind int

const (
	// EventText is a plain chat message.
	EventText EventKind = iota
	// EventImageCreate carries the text after an image-create trigger.
	EventImageCreate
	// EventImageUpload carries the transport file id of a picture the user sent.
	EventImageUpload
	// EventRepeat carries the id of a stored generation to run again.
	EventRepeat
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventImageCreate:
		return "image_create"
	case EventImageUpload:
		return "image_upload"
	case EventRepeat:
		return "repeat"
	}
	return "unknown"
}

type Event struct {
	Kind      EventKind
	SessionID string
	ChatID    int64
	Content   string
}

// Action tells the host what to do after a plugin handled an event.
type Action int

const (
	// ActionContinue passes the event on to the next plugin.
	ActionContinue Action = iota
	// ActionBreak stops the plugin chain but lets the host run its default
	// handling.
	ActionBreak
	// ActionBreakPass stops everything; the reply is final.
	ActionBreakPass
)

type EventContext struct {
	Event  Event
	Reply  *domain.Reply
	Action Action
}

type Plugin interface {
	Name() string
	HandleEvent(ctx context.Context, ec *EventContext)
}
