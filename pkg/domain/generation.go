package domain

import "time"

// Generation is a finished prediction kept so it can be repeated later.
type Generation struct {
	ID        string
	SessionID string
	Params    Params
	ResultURL string
	CreatedAt time.Time
}
