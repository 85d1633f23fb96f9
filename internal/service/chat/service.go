package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/storage"
)

const (
	// StorageKey is the fixed slot holding the whole chat collection.
	StorageKey = "voice-assistant.chats"
	// WelcomeText opens every new chat.
	WelcomeText = "Hey, I am your AI assistant, how may I help you?"

	titleLimit = 30
)

var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrInvalidSender = errors.New("sender must be user or bot")
	ErrEmptyText     = errors.New("message text is required")
)

// Service owns the chat collection. The collection is never empty and the
// active chat always refers to one of its members.
type Service struct {
	mu     sync.RWMutex
	store  storage.KV
	chats  []chat.Chat
	active string
	now    func() time.Time
}

// NewService loads the persisted collection or seeds a single welcome chat.
func NewService(ctx context.Context, store storage.KV) (*Service, error) {
	if store == nil {
		store = storage.NewMemoryStore()
	}

	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}

	snapshot, err := s.load(ctx)
	if err != nil {
		log.Printf("[chat] ignoring unreadable chat store: %v", err)
	}

	if len(snapshot.Chats) == 0 {
		s.seed(ctx)
		return s, nil
	}

	s.chats = snapshot.Chats
	s.active = snapshot.ActiveChatID
	if _, ok := s.indexOf(s.active); !ok {
		s.active = s.mostRecentLocked().ID
	}
	return s, nil
}

func (s *Service) load(ctx context.Context) (chat.Snapshot, error) {
	raw, ok, err := s.store.Get(ctx, StorageKey)
	if err != nil {
		return chat.Snapshot{}, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return chat.Snapshot{}, nil
	}

	var snapshot chat.Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return chat.Snapshot{}, fmt.Errorf("failed to decode chats: %w", err)
	}
	return snapshot, nil
}

func (s *Service) seed(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.newChatLocked()
	s.active = created.ID
	s.persistLocked(ctx)
}

// CreateChat adds an empty chat (welcome message only) and makes it active.
func (s *Service) CreateChat(ctx context.Context) chat.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.newChatLocked()
	s.active = created.ID
	s.persistLocked(ctx)
	return created.Clone()
}

// DeleteChat removes a chat. Deleting the active chat activates the most
// recently updated survivor, or a fresh chat when none remain.
func (s *Service) DeleteChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexOf(chatID)
	if !ok {
		return ErrChatNotFound
	}

	s.chats = append(s.chats[:idx], s.chats[idx+1:]...)

	switch {
	case len(s.chats) == 0:
		s.active = s.newChatLocked().ID
	case s.active == chatID:
		s.active = s.mostRecentLocked().ID
	}

	s.persistLocked(ctx)
	return nil
}

// SelectChat marks chatID as the active chat.
func (s *Service) SelectChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexOf(chatID); !ok {
		return ErrChatNotFound
	}
	s.active = chatID
	s.persistLocked(ctx)
	return nil
}

// AppendMessage appends a message to chatID. Ids are 1-based positions.
func (s *Service) AppendMessage(ctx context.Context, chatID string, sender chat.Sender, text string) (chat.Message, error) {
	if !sender.Valid() {
		return chat.Message{}, ErrInvalidSender
	}
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexOf(chatID)
	if !ok {
		return chat.Message{}, ErrChatNotFound
	}

	target := &s.chats[idx]
	message := chat.Message{
		ID:     len(target.Messages) + 1,
		Sender: sender,
		Text:   text,
	}

	if sender == chat.SenderUser && !hasUserMessage(target.Messages) {
		target.Title = deriveTitle(text)
	}
	target.Messages = append(target.Messages, message)
	target.Timestamp = s.now()

	s.persistLocked(ctx)
	return message, nil
}

// ActiveChat returns a copy of the active chat.
func (s *Service) ActiveChat(_ context.Context) chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, _ := s.indexOf(s.active)
	return s.chats[idx].Clone()
}

// Chat returns a copy of the chat with the given id.
func (s *Service) Chat(_ context.Context, chatID string) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexOf(chatID)
	if !ok {
		return chat.Chat{}, ErrChatNotFound
	}
	return s.chats[idx].Clone(), nil
}

// List returns chats whose title contains query (case-insensitive), most
// recently updated first.
func (s *Service) List(_ context.Context, query string) []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]chat.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		if needle != "" && !strings.Contains(strings.ToLower(c.Title), needle) {
			continue
		}
		out = append(out, c.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Snapshot returns the active id and every chat in storage order.
func (s *Service) Snapshot(_ context.Context) chat.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() chat.Snapshot {
	chats := make([]chat.Chat, len(s.chats))
	for i, c := range s.chats {
		chats[i] = c.Clone()
	}
	return chat.Snapshot{ActiveChatID: s.active, Chats: chats}
}

func (s *Service) newChatLocked() chat.Chat {
	created := chat.Chat{
		ID:        uuid.NewString(),
		Title:     chat.DefaultTitle,
		Timestamp: s.now(),
		Messages:  []chat.Message{{ID: 1, Sender: chat.SenderBot, Text: WelcomeText}},
	}
	s.chats = append(s.chats, created)
	return created
}

func (s *Service) mostRecentLocked() chat.Chat {
	best := s.chats[0]
	for _, c := range s.chats[1:] {
		if c.Timestamp.After(best.Timestamp) {
			best = c
		}
	}
	return best
}

func (s *Service) indexOf(chatID string) (int, bool) {
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			return i, true
		}
	}
	return -1, false
}

// persistLocked is best-effort: a failed write is logged and the in-memory
// state stays authoritative.
func (s *Service) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		log.Printf("[chat] failed to encode chats: %v", err)
		return
	}
	if err := s.store.Set(ctx, StorageKey, string(data)); err != nil {
		log.Printf("[chat] failed to persist chats: %v", err)
	}
}

func hasUserMessage(messages []chat.Message) bool {
	for _, m := range messages {
		if m.Sender == chat.SenderUser {
			return true
		}
	}
	return false
}

func deriveTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(title) <= titleLimit {
		return title
	}
	runes := []rune(title)
	return string(runes[:titleLimit]) + "..."
}
