package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"u-tutor-be/pkg/llm"
	"u-tutor-be/pkg/store"
)

type storedMessage struct {
	conversationID uuid.UUID
	role           string
	content        string
}

type fakeStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]string
	messages      []storedMessage
	createErr     error
	appendErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[uuid.UUID]string)}
}

func (f *fakeStore) CreateConversation(ctx context.Context, title string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	id := uuid.New()
	f.conversations[id] = title
	return id, nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.messages = append(f.messages, storedMessage{conversationID, role, content})
	return nil
}

func (f *fakeStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]llm.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.Message
	for _, m := range f.messages {
		if m.conversationID == conversationID {
			out = append(out, llm.Message{Role: m.role, Content: m.content})
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteConversation(ctx context.Context, conversationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conversations, conversationID)
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.conversationID != conversationID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f *fakeStore) storedByRole(role string) []storedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storedMessage
	for _, m := range f.messages {
		if m.role == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeCompleter struct {
	reply string
	err   error
	// gate, when non-nil, delays fragment delivery until closed.
	gate  chan struct{}
	calls int32
}

func (f *fakeCompleter) StreamResponse(ctx context.Context, history []llm.Message) (<-chan string, <-chan error) {
	atomic.AddInt32(&f.calls, 1)
	deltaCh := make(chan string, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(deltaCh)
		defer close(errCh)
		if f.gate != nil {
			select {
			case <-f.gate:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if f.err != nil {
			errCh <- f.err
			return
		}
		for _, word := range strings.SplitAfter(f.reply, " ") {
			select {
			case deltaCh <- word:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- nil
	}()
	return deltaCh, errCh
}

func (f *fakeCompleter) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		invalid bool
	}{
		{"valid", "  what is photosynthesis?  ", "what is photosynthesis?", false},
		{"empty", "", "", true},
		{"whitespace only", "   \n\t ", "", true},
		{"too long", strings.Repeat("x y ", 1001), "", true},
		{"repeated character", strings.Repeat("a", 20), "", true},
		{"short repeated character allowed", "aaaa", "aaaa", false},
		{"exactly max length", strings.Repeat("ab", 2000), strings.Repeat("ab", 2000), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMessage(tt.input)
			if tt.invalid {
				var vErr *ValidationError
				assert.ErrorAs(t, err, &vErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitCreatesConversationAndPersistsUserMessage(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{})
	sess := store.NewSession("s1")

	err := ctrl.Submit(context.Background(), sess, "¿Qué es la fotosíntesis?")
	require.NoError(t, err)

	require.NotNil(t, sess.ConversationID)
	assert.Equal(t, "¿Qué es la fotosíntesis?", st.conversations[*sess.ConversationID])
	assert.True(t, sess.AwaitingResponse)

	userRows := st.storedByRole(RoleUser)
	require.Len(t, userRows, 1)
	assert.Equal(t, "¿Qué es la fotosíntesis?", userRows[0].content)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, RoleUser, sess.Messages[0].Role)
}

func TestSubmitDerivesTruncatedTitle(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{})
	sess := store.NewSession("s1")

	long := strings.Repeat("explain this topic ", 10)
	require.NoError(t, ctrl.Submit(context.Background(), sess, long))

	title := st.conversations[*sess.ConversationID]
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.LessOrEqual(t, len([]rune(title)), 53)
}

func TestSubmitInvalidInputChangesNothing(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{})
	sess := store.NewSession("s1")

	err := ctrl.Submit(context.Background(), sess, "   ")

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Nil(t, sess.ConversationID)
	assert.Empty(t, sess.Messages)
	assert.False(t, sess.AwaitingResponse)
	assert.Empty(t, st.messages)
}

func TestSubmitRejectedWhileGenerating(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{})
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "first"))
	err := ctrl.Submit(context.Background(), sess, "second")

	assert.ErrorIs(t, err, ErrGenerationInProgress)
	assert.Len(t, st.messages, 1)
}

func TestSubmitPersistenceFailureLeavesSessionIdle(t *testing.T) {
	st := newFakeStore()
	st.appendErr = errors.New("disk full")
	ctrl := NewController(st, &fakeCompleter{})
	sess := store.NewSession("s1")

	err := ctrl.Submit(context.Background(), sess, "hello")

	var pErr *PersistenceError
	assert.ErrorAs(t, err, &pErr)
	assert.False(t, sess.AwaitingResponse)
	assert.Empty(t, sess.Messages)
}

func TestContinueGenerationCompletesTurn(t *testing.T) {
	st := newFakeStore()
	completer := &fakeCompleter{reply: "Photosynthesis converts light into energy."}
	ctrl := NewController(st, completer)
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "what is photosynthesis?"))

	var streamed strings.Builder
	reply, err := ctrl.ContinueGeneration(context.Background(), sess, func(delta string) {
		streamed.WriteString(delta)
	})

	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis converts light into energy.", reply)
	assert.Equal(t, reply, streamed.String())
	assert.False(t, sess.AwaitingResponse)

	// What the session shows and what the store holds must be the same string.
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, RoleAssistant, sess.Messages[1].Role)
	rows := st.storedByRole(RoleAssistant)
	require.Len(t, rows, 1)
	assert.Equal(t, sess.Messages[1].Content, rows[0].content)
}

func TestContinueGenerationNoOpWhenIdle(t *testing.T) {
	completer := &fakeCompleter{reply: "never"}
	ctrl := NewController(newFakeStore(), completer)
	sess := store.NewSession("s1")

	reply, err := ctrl.ContinueGeneration(context.Background(), sess, nil)

	assert.NoError(t, err)
	assert.Empty(t, reply)
	assert.Zero(t, completer.callCount())
}

func TestContinueGenerationReentrancyIdempotence(t *testing.T) {
	st := newFakeStore()
	completer := &fakeCompleter{reply: "slow reply", gate: make(chan struct{})}
	ctrl := NewController(st, completer)
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "take your time"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := ctrl.ContinueGeneration(context.Background(), sess, nil)
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		return completer.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Re-entry while the first generation is in flight must not start a
	// second model call.
	reply, err := ctrl.ContinueGeneration(context.Background(), sess, nil)
	assert.NoError(t, err)
	assert.Empty(t, reply)

	close(completer.gate)
	<-done

	assert.Equal(t, int32(1), completer.callCount())
	assert.Len(t, st.storedByRole(RoleAssistant), 1)
}

func TestFinalizeTurnReplacesTrailingAssistantMessage(t *testing.T) {
	st := newFakeStore()
	completer := &fakeCompleter{reply: "fresh reply"}
	ctrl := NewController(st, completer)
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "question"))
	sess.Messages = append(sess.Messages, llm.Message{Role: RoleAssistant, Content: "stale reply"})

	reply, err := ctrl.ContinueGeneration(context.Background(), sess, nil)

	require.NoError(t, err)
	assert.Equal(t, "fresh reply", reply)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "fresh reply", sess.Messages[1].Content)
	// The trailing assistant message is replaced, not duplicated, and no
	// extra row is written for it.
	assert.Empty(t, st.storedByRole(RoleAssistant))
}

func TestCancelForNavigationDiscardsLateResult(t *testing.T) {
	st := newFakeStore()
	completer := &fakeCompleter{reply: "late reply", gate: make(chan struct{})}
	ctrl := NewController(st, completer)
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "about to navigate away"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		reply, err := ctrl.ContinueGeneration(context.Background(), sess, nil)
		assert.NoError(t, err)
		assert.Empty(t, reply)
	}()

	require.Eventually(t, func() bool {
		return completer.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	ctrl.CancelForNavigation(sess)
	close(completer.gate)
	<-done

	assert.True(t, sess.GenerationCancelled)
	assert.False(t, sess.AwaitingResponse)
	assert.Empty(t, st.storedByRole(RoleAssistant), "cancelled turn output must not be persisted")
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, RoleUser, sess.Messages[0].Role)
}

func TestStartNewConversationWhileGenerating(t *testing.T) {
	st := newFakeStore()
	completer := &fakeCompleter{reply: "abandoned", gate: make(chan struct{})}
	ctrl := NewController(st, completer)
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "stray question"))
	abandonedID := *sess.ConversationID

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = ctrl.ContinueGeneration(context.Background(), sess, nil)
	}()
	require.Eventually(t, func() bool {
		return completer.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	ctrl.StartNewConversation(sess)
	close(completer.gate)
	<-done

	assert.Nil(t, sess.ConversationID)
	assert.Empty(t, sess.Messages)
	assert.False(t, sess.AwaitingResponse)
	assert.True(t, sess.GenerationCancelled)

	// The stray user message stays in the store under the abandoned id.
	rows := st.storedByRole(RoleUser)
	require.Len(t, rows, 1)
	assert.Equal(t, abandonedID, rows[0].conversationID)
}

func TestCompletionFailureReturnsSessionToIdle(t *testing.T) {
	st := newFakeStore()
	completer := &fakeCompleter{err: errors.New("429: rate limit exceeded")}
	ctrl := NewController(st, completer)
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "hello"))
	reply, err := ctrl.ContinueGeneration(context.Background(), sess, nil)

	assert.Empty(t, reply)
	var cErr *CompletionError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, ErrKindRateLimited, cErr.Kind)
	assert.False(t, sess.AwaitingResponse, "session must never stay stuck generating")
	assert.Empty(t, st.storedByRole(RoleAssistant))
}

func TestRegenerateLastRemovesTrailingAssistant(t *testing.T) {
	st := newFakeStore()
	completer := &fakeCompleter{reply: "better answer"}
	ctrl := NewController(st, completer)
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "question"))
	_, err := ctrl.ContinueGeneration(context.Background(), sess, nil)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)

	require.NoError(t, ctrl.RegenerateLast(sess))

	assert.True(t, sess.AwaitingResponse)
	assert.False(t, sess.GenerationCancelled)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, RoleUser, sess.Messages[0].Role)
}

func TestRegenerateLastAfterCancellation(t *testing.T) {
	ctrl := NewController(newFakeStore(), &fakeCompleter{})
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "question"))
	ctrl.CancelForNavigation(sess)
	require.True(t, sess.GenerationCancelled)

	require.NoError(t, ctrl.RegenerateLast(sess))
	assert.True(t, sess.AwaitingResponse)
	assert.False(t, sess.GenerationCancelled)
}

func TestRegenerateLastWithoutUserMessage(t *testing.T) {
	ctrl := NewController(newFakeStore(), &fakeCompleter{})
	sess := store.NewSession("s1")

	err := ctrl.RegenerateLast(sess)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.False(t, sess.AwaitingResponse)
}

func TestSwitchConversationLoadsStoredHistory(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{reply: "answer"})
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "first conversation"))
	_, err := ctrl.ContinueGeneration(context.Background(), sess, nil)
	require.NoError(t, err)
	firstID := *sess.ConversationID

	ctrl.StartNewConversation(sess)
	require.NoError(t, ctrl.Submit(context.Background(), sess, "second conversation"))

	require.NoError(t, ctrl.SwitchConversation(context.Background(), sess, firstID))

	assert.Equal(t, firstID, *sess.ConversationID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "first conversation", sess.Messages[0].Content)
	assert.Equal(t, "answer", sess.Messages[1].Content)
	assert.False(t, sess.AwaitingResponse)
}

func TestDeleteActiveConversationResetsSession(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{reply: "answer"})
	sess := store.NewSession("s1")

	require.NoError(t, ctrl.Submit(context.Background(), sess, "to be deleted"))
	_, err := ctrl.ContinueGeneration(context.Background(), sess, nil)
	require.NoError(t, err)
	id := *sess.ConversationID

	require.NoError(t, ctrl.DeleteConversation(context.Background(), sess, id))

	assert.Nil(t, sess.ConversationID)
	assert.Empty(t, sess.Messages)
	assert.Empty(t, st.messages)
}

func TestDeleteOtherConversationKeepsSession(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{reply: "answer"})
	sess := store.NewSession("s1")

	otherID, err := st.CreateConversation(context.Background(), "other")
	require.NoError(t, err)

	require.NoError(t, ctrl.Submit(context.Background(), sess, "mine"))
	require.NoError(t, ctrl.DeleteConversation(context.Background(), sess, otherID))

	assert.NotNil(t, sess.ConversationID)
	assert.Len(t, sess.Messages, 1)
}

func TestSubmitPendingReplaysQueuedMessage(t *testing.T) {
	st := newFakeStore()
	ctrl := NewController(st, &fakeCompleter{})
	sess := store.NewSession("s1")

	ctrl.QueueMessage(sess, "queued question")
	require.NoError(t, ctrl.SubmitPending(context.Background(), sess))

	assert.Empty(t, sess.PendingMessage)
	rows := st.storedByRole(RoleUser)
	require.Len(t, rows, 1)
	assert.Equal(t, "queued question", rows[0].content)

	// No pending message: a second replay is a no-op.
	require.NoError(t, ctrl.SubmitPending(context.Background(), sess))
	assert.Len(t, st.storedByRole(RoleUser), 1)
}

func TestClassifyCompletionError(t *testing.T) {
	tests := []struct {
		err  error
		kind CompletionErrorKind
	}{
		{errors.New("429 Too Many Requests"), ErrKindRateLimited},
		{errors.New("rate limit exceeded, retry later"), ErrKindRateLimited},
		{errors.New("401 Unauthorized"), ErrKindAuthenticationFailed},
		{errors.New("incorrect api key provided"), ErrKindAuthenticationFailed},
		{errors.New("request timed out after 30s"), ErrKindTimeout},
		{context.DeadlineExceeded, ErrKindTimeout},
		{errors.New("dial tcp: connection refused"), ErrKindNetworkUnavailable},
		{errors.New("lookup api.example.com: no such host"), ErrKindNetworkUnavailable},
		{errors.New("you exceeded your current quota"), ErrKindQuotaExceeded},
		{errors.New("model gpt-x does not exist"), ErrKindModelUnavailable},
		{errors.New("something inexplicable"), ErrKindUnknown},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.err), func(t *testing.T) {
			cErr := ClassifyCompletionError(tt.err)
			require.NotNil(t, cErr)
			assert.Equal(t, tt.kind, cErr.Kind)
			assert.NotEmpty(t, cErr.UserMessage())
		})
	}
	assert.Nil(t, ClassifyCompletionError(nil))
}
