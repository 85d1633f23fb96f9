package chat

import "time"

// DefaultTitle is used until the first user message names the chat.
const DefaultTitle = "New Chat"

// Chat groups an ordered message list under a title.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// Clone returns a deep copy so callers cannot mutate stored history.
func (c Chat) Clone() Chat {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}

// Snapshot is the persisted form of the whole chat collection.
type Snapshot struct {
	ActiveChatID string `json:"activeChatId"`
	Chats        []Chat `json:"chats"`
}
