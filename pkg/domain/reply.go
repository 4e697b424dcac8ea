package domain

type ReplyType string

const (
	ReplyInfo     ReplyType = "info"
	ReplyError    ReplyType = "error"
	ReplyImageURL ReplyType = "image_url"
)

type Reply struct {
	Type    ReplyType `json:"type"`
	Content string    `json:"content"`

	// GenerationID is set on image replies that were stored in the history.
	GenerationID string `json:"generation_id,omitempty"`
}

func InfoReply(content string) *Reply {
	return &Reply{Type: ReplyInfo, Content: content}
}

func ErrorReply(content string) *Reply {
	return &Reply{Type: ReplyError, Content: content}
}

func ImageURLReply(url, generationID string) *Reply {
	return &Reply{Type: ReplyImageURL, Content: url, GenerationID: generationID}
}
