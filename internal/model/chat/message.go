package chat

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Message is a single append-only turn inside a chat.
type Message struct {
	ID     int    `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}
