package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"u-tutor-be/pkg/completion"
	"u-tutor-be/pkg/llm"
	"u-tutor-be/pkg/store"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// MaxMessageLength caps a single user submission.
	MaxMessageLength = 4000
	// degenerateRepeatThreshold rejects strings like "aaaaaaaaaaaa".
	degenerateRepeatThreshold = 10
)

// ErrGenerationInProgress is returned when a command that requires an idle
// session arrives while a response is still being generated.
var ErrGenerationInProgress = errors.New("a response is already being generated for this session")

// ConversationStore is the persistence surface the controller depends on.
type ConversationStore interface {
	CreateConversation(ctx context.Context, title string) (uuid.UUID, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]llm.Message, error)
	DeleteConversation(ctx context.Context, conversationID uuid.UUID) error
}

// Completer produces streamed model replies for a message history.
type Completer interface {
	StreamResponse(ctx context.Context, history []llm.Message) (<-chan string, <-chan error)
}

type generation struct {
	cancel context.CancelFunc
}

// Controller owns the per-session conversational state machine: message
// submission, streamed generation, cancellation on navigation, and the
// guards that keep a session to at most one in-flight generation.
//
// Commands are explicit and idempotent where re-entry is possible. Submit
// accepts input and moves the session to generating; ContinueGeneration
// drives the stream and finalizes the turn; CancelForNavigation abandons an
// in-flight turn when the user moves elsewhere.
type Controller struct {
	store     ConversationStore
	completer Completer

	mu       sync.Mutex
	inflight map[string]*generation
}

func NewController(convStore ConversationStore, completer Completer) *Controller {
	return &Controller{
		store:     convStore,
		completer: completer,
		inflight:  make(map[string]*generation),
	}
}

// ValidateMessage trims and checks a raw submission. Returns the cleaned
// message, or a ValidationError without touching any state.
func ValidateMessage(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &ValidationError{Reason: "message is empty"}
	}
	runes := []rune(trimmed)
	if len(runes) > MaxMessageLength {
		return "", &ValidationError{Reason: "message exceeds the maximum length"}
	}
	if len(runes) > degenerateRepeatThreshold && isRepeatedRune(runes) {
		return "", &ValidationError{Reason: "message is a single repeated character"}
	}
	return trimmed, nil
}

func isRepeatedRune(runes []rune) bool {
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// Submit validates and accepts a user message: the conversation row is
// created if the session has none, the message is persisted, and the session
// enters the generating state. Exactly one user message row is written.
func (c *Controller) Submit(ctx context.Context, sess *store.Session, text string) error {
	message, err := ValidateMessage(text)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if sess.AwaitingResponse {
		return ErrGenerationInProgress
	}

	if sess.ConversationID == nil {
		title := completion.TruncateTitle(message)
		id, err := c.store.CreateConversation(ctx, title)
		if err != nil {
			return &PersistenceError{Op: "create conversation", Err: err}
		}
		sess.ConversationID = &id
	}

	if err := c.store.AppendMessage(ctx, *sess.ConversationID, RoleUser, message); err != nil {
		return &PersistenceError{Op: "append message", Err: err}
	}

	sess.Messages = append(sess.Messages, llm.Message{Role: RoleUser, Content: message})
	sess.AwaitingResponse = true
	sess.GenerationCancelled = false
	sess.Touch()
	return nil
}

// QueueMessage stores input to be submitted once the session is free, e.g.
// a suggestion clicked while a conversation switch is still settling.
func (c *Controller) QueueMessage(sess *store.Session, text string) {
	c.mu.Lock()
	sess.PendingMessage = text
	c.mu.Unlock()
}

// SubmitPending replays a queued message, if any.
func (c *Controller) SubmitPending(ctx context.Context, sess *store.Session) error {
	c.mu.Lock()
	pending := sess.PendingMessage
	sess.PendingMessage = ""
	c.mu.Unlock()

	if pending == "" {
		return nil
	}
	return c.Submit(ctx, sess, pending)
}

// ContinueGeneration drives the streamed completion for the session's
// current turn, invoking onFragment for each arriving piece of text.
//
// It is idempotent against re-entry: a second call while a generation is
// already running for the same session returns immediately without issuing
// another model call. Every path out of this function leaves the session
// out of the generating state.
func (c *Controller) ContinueGeneration(ctx context.Context, sess *store.Session, onFragment func(string)) (string, error) {
	c.mu.Lock()
	if !sess.AwaitingResponse {
		c.mu.Unlock()
		return "", nil
	}
	if _, running := c.inflight[sess.ID]; running {
		c.mu.Unlock()
		return "", nil
	}

	genCtx, cancel := context.WithCancel(ctx)
	c.inflight[sess.ID] = &generation{cancel: cancel}
	history := make([]llm.Message, len(sess.Messages))
	copy(history, sess.Messages)
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.inflight, sess.ID)
		sess.AwaitingResponse = false
		c.mu.Unlock()
	}()

	deltaCh, errCh := c.completer.StreamResponse(genCtx, history)

	var full strings.Builder
	for delta := range deltaCh {
		full.WriteString(delta)
		if onFragment != nil {
			onFragment(delta)
		}
	}
	streamErr := <-errCh

	c.mu.Lock()
	cancelled := sess.GenerationCancelled || genCtx.Err() != nil
	c.mu.Unlock()

	// A turn the user navigated away from is abandoned: its late result is
	// never shown and never persisted.
	if cancelled {
		return "", nil
	}
	if streamErr != nil {
		return "", ClassifyCompletionError(streamErr)
	}

	reply := full.String()
	return reply, c.finalizeTurn(ctx, sess, reply)
}

// finalizeTurn records the assistant reply exactly once. If the trailing
// session message is already an assistant message for this turn, it is
// replaced rather than duplicated and no second row is written.
func (c *Controller) finalizeTurn(ctx context.Context, sess *store.Session, reply string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last := sess.LastMessage(); last != nil && last.Role == RoleAssistant {
		last.Content = reply
		sess.Touch()
		return nil
	}

	if sess.ConversationID == nil {
		return &PersistenceError{Op: "append message", Err: errors.New("no active conversation")}
	}
	if err := c.store.AppendMessage(ctx, *sess.ConversationID, RoleAssistant, reply); err != nil {
		return &PersistenceError{Op: "append message", Err: err}
	}
	sess.Messages = append(sess.Messages, llm.Message{Role: RoleAssistant, Content: reply})
	sess.Touch()
	return nil
}

// CancelForNavigation abandons the in-flight generation, if any. The user
// message of the abandoned turn stays persisted.
func (c *Controller) CancelForNavigation(sess *store.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen, ok := c.inflight[sess.ID]; ok {
		gen.cancel()
	}
	if sess.AwaitingResponse {
		sess.GenerationCancelled = true
		sess.AwaitingResponse = false
	}
}

// RegenerateLast re-enters generation for the last user message. A trailing
// assistant reply is removed from the session first; its stored row is kept
// as history but superseded.
func (c *Controller) RegenerateLast(sess *store.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess.AwaitingResponse {
		return ErrGenerationInProgress
	}
	if last := sess.LastMessage(); last != nil && last.Role == RoleAssistant {
		sess.Messages = sess.Messages[:len(sess.Messages)-1]
	}
	last := sess.LastMessage()
	if last == nil || last.Role != RoleUser {
		return &ValidationError{Reason: "no user message to regenerate from"}
	}
	sess.AwaitingResponse = true
	sess.GenerationCancelled = false
	sess.Touch()
	return nil
}

// SwitchConversation loads another conversation into the session, cancelling
// any in-flight generation first.
func (c *Controller) SwitchConversation(ctx context.Context, sess *store.Session, conversationID uuid.UUID) error {
	c.CancelForNavigation(sess)

	messages, err := c.store.ListMessages(ctx, conversationID)
	if err != nil {
		return &PersistenceError{Op: "list messages", Err: err}
	}

	c.mu.Lock()
	sess.ConversationID = &conversationID
	sess.Messages = messages
	sess.AwaitingResponse = false
	sess.Touch()
	c.mu.Unlock()
	return nil
}

// StartNewConversation detaches the session from its conversation. The next
// Submit creates a fresh conversation row.
func (c *Controller) StartNewConversation(sess *store.Session) {
	c.CancelForNavigation(sess)

	c.mu.Lock()
	sess.ConversationID = nil
	sess.Messages = nil
	sess.AwaitingResponse = false
	sess.Touch()
	c.mu.Unlock()
}

// DeleteConversation removes a conversation and, when it is the session's
// active one, resets the session transcript.
func (c *Controller) DeleteConversation(ctx context.Context, sess *store.Session, conversationID uuid.UUID) error {
	if err := c.store.DeleteConversation(ctx, conversationID); err != nil {
		return &PersistenceError{Op: "delete conversation", Err: err}
	}

	c.mu.Lock()
	active := sess.ConversationID != nil && *sess.ConversationID == conversationID
	c.mu.Unlock()

	if active {
		c.CancelForNavigation(sess)
		c.mu.Lock()
		sess.ConversationID = nil
		sess.Messages = nil
		sess.AwaitingResponse = false
		sess.GenerationCancelled = false
		sess.Touch()
		c.mu.Unlock()
	}
	return nil
}
