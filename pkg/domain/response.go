package domain

type Response struct {
	ChatID int64
	Reply  Reply
}
