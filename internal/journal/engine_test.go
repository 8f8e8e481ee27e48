package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiroku-app/kiroku/internal/ai"
)

// fakeProvider records every completion call and replies from a script.
type fakeProvider struct {
	mu      sync.Mutex
	calls   [][]ai.Message
	opts    []ai.ChatOptions
	replies []string
	chatErr error
	delay   time.Duration

	imageURL string
	imageErr error
}

func (f *fakeProvider) Chat(_ context.Context, messages []ai.Message, opts ai.ChatOptions) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]ai.Message(nil), messages...))
	f.opts = append(f.opts, opts)
	if f.chatErr != nil {
		return "", f.chatErr
	}
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		return r, nil
	}
	return fmt.Sprintf("reply-%d", len(f.calls)), nil
}

func (f *fakeProvider) GenerateImage(_ context.Context, _ string) (string, error) {
	if f.imageErr != nil {
		return "", f.imageErr
	}
	if f.imageURL != "" {
		return f.imageURL, nil
	}
	return "https://images.example/session.png", nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) recordedOpts() []ai.ChatOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.ChatOptions(nil), f.opts...)
}

func (f *fakeProvider) lastCall() []ai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// chatOnly hides the image surface so the completion-only path is exercised.
type chatOnly struct{ fp *fakeProvider }

func (c chatOnly) Chat(ctx context.Context, messages []ai.Message, opts ai.ChatOptions) (string, error) {
	return c.fp.Chat(ctx, messages, opts)
}

func newTestEngine(t *testing.T, st *Store, p ai.Provider) *Engine {
	t.Helper()
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		return p, nil
	})
	return NewEngine(st, reg, NewComposer(), nil, "fake", "", "")
}

func seedSession(t *testing.T, st *Store, sid string) *Session {
	t.Helper()
	sess := &Session{
		SessionID:   sid,
		UserID:      "u1",
		UserName:    "田中",
		Week:        1,
		Theme:       `あなたの"はたらくウェルビーイング"は？`,
		Perspective: "I",
	}
	if err := st.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := st.InsertMessage(context.Background(), &Message{
		SessionID: sid,
		Role:      RoleSystem,
		Content:   "system prompt",
	}); err != nil {
		t.Fatalf("insert system prompt: %v", err)
	}
	return sess
}

func TestGreetInstructionNotPersisted(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{replies: []string{"こんにちは！"}}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_g1")

	greeting, err := e.Greet(context.Background(), sess)
	if err != nil {
		t.Fatalf("greet: %v", err)
	}
	if greeting != "こんにちは！" {
		t.Fatalf("greeting = %q", greeting)
	}

	// the provider saw the ephemeral instruction
	call := fp.lastCall()
	if got := call[len(call)-1].Content; !strings.Contains(got, "セッションを開始してください") {
		t.Fatalf("provider did not receive greeting instruction: %q", got)
	}

	// the stored transcript did not
	msgs, err := st.ListMessages(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("transcript length = %d, want system+assistant", len(msgs))
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "こんにちは！" {
		t.Fatalf("assistant row = %+v", msgs[1])
	}
}

func TestGreetFallbackOnProviderFailure(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{chatErr: errors.New("boom")}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_g2")

	greeting, err := e.Greet(context.Background(), sess)
	if err != nil {
		t.Fatalf("greet must not fail when a fallback exists: %v", err)
	}
	want := NewComposer().FallbackGreeting(sess.UserName, sess.Theme)
	if greeting != want {
		t.Fatalf("greeting = %q, want stock fallback", greeting)
	}

	msgs, _ := st.ListMessages(context.Background(), sess.SessionID)
	if len(msgs) != 2 || msgs[1].Content != want {
		t.Fatalf("fallback greeting must be persisted, got %+v", msgs)
	}
}

func TestTurnAppendsUserAndAssistant(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{replies: []string{"いい質問ですね"}}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_t1")

	reply, err := e.Turn(context.Background(), sess, "最近仕事が楽しいです")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if reply != "いい質問ですね" {
		t.Fatalf("reply = %q", reply)
	}

	// provider saw the full transcript including the new user message
	call := fp.lastCall()
	if len(call) != 2 || call[1].Role != RoleUser {
		t.Fatalf("provider transcript = %+v", call)
	}

	msgs, _ := st.ListMessages(context.Background(), sess.SessionID)
	if len(msgs) != 3 {
		t.Fatalf("transcript length = %d, want system+user+assistant", len(msgs))
	}
}

func TestTurnRetryDoesNotDuplicateUserMessage(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{chatErr: errors.New("provider down")}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_t2")

	if _, err := e.Turn(context.Background(), sess, "もう一度"); err == nil {
		t.Fatalf("turn must surface provider failure")
	}

	// user message survived the failed turn
	msgs, _ := st.ListMessages(context.Background(), sess.SessionID)
	if len(msgs) != 2 || msgs[1].Role != RoleUser {
		t.Fatalf("user message not retained: %+v", msgs)
	}

	fp.mu.Lock()
	fp.chatErr = nil
	fp.replies = []string{"回復しました"}
	fp.mu.Unlock()

	reply, err := e.Turn(context.Background(), sess, "もう一度")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if reply != "回復しました" {
		t.Fatalf("reply = %q", reply)
	}

	msgs, _ = st.ListMessages(context.Background(), sess.SessionID)
	var users int
	for _, m := range msgs {
		if m.Role == RoleUser {
			users++
		}
	}
	if users != 1 {
		t.Fatalf("retry duplicated the user message, %d user rows", users)
	}
}

func TestEndProducesArtifacts(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{replies: []string{
		"200字の要約",
		"# 今週の気づき\n\n本文です。",
	}}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_e1")

	res, err := e.End(context.Background(), sess)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if res.Summary != "200字の要約" {
		t.Fatalf("summary = %q", res.Summary)
	}
	if res.ImageURL != "https://images.example/session.png" {
		t.Fatalf("image url = %q", res.ImageURL)
	}
	if !strings.Contains(res.Article, "![セッションのイメージ](https://images.example/session.png)") {
		t.Fatalf("image ref missing from article:\n%s", res.Article)
	}
	if !strings.HasPrefix(res.Article, "# 今週の気づき\n") {
		t.Fatalf("heading must stay first:\n%s", res.Article)
	}

	if !sess.IsCompleted || sess.CompletedAt == nil {
		t.Fatalf("session not marked completed")
	}

	// summary then article, temperatures per artifact
	opts := fp.recordedOpts()
	if len(opts) != 2 || opts[0].Temperature != 0.5 || opts[1].Temperature != 0.7 {
		t.Fatalf("chat options = %+v", opts)
	}
}

func TestEndIdempotent(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{replies: []string{"要約", "# 記事\n\n本文"}}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_e2")

	first, err := e.End(context.Background(), sess)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	calls := fp.callCount()

	again, err := e.End(context.Background(), sess)
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if fp.callCount() != calls {
		t.Fatalf("completed session must not trigger new provider calls")
	}
	if again.Summary != first.Summary || again.Article != first.Article {
		t.Fatalf("second end returned different artifacts")
	}
}

func TestEndImageFailureNonFatal(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{
		replies:  []string{"要約", "# 記事\n\n本文"},
		imageErr: errors.New("image service down"),
	}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_e3")

	res, err := e.End(context.Background(), sess)
	if err != nil {
		t.Fatalf("image failure must not fail the session: %v", err)
	}
	if res.ImageURL != "" {
		t.Fatalf("image url = %q, want empty", res.ImageURL)
	}
	if strings.Contains(res.Article, "![") {
		t.Fatalf("no image ref expected:\n%s", res.Article)
	}
	if !sess.IsCompleted {
		t.Fatalf("session must complete without an image")
	}
}

func TestEndWithoutImageProvider(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{replies: []string{"要約", "# 記事\n\n本文"}}
	e := newTestEngine(t, st, chatOnly{fp: fp})
	sess := seedSession(t, st, "u1_week1_e4")

	res, err := e.End(context.Background(), sess)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if res.ImageURL != "" {
		t.Fatalf("chat-only provider cannot yield an image url")
	}
}

func TestEndSummaryFailureLeavesSessionRetryable(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{chatErr: errors.New("boom")}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_e5")

	if _, err := e.End(context.Background(), sess); err == nil {
		t.Fatalf("summary failure must abort the end")
	}
	if sess.IsCompleted {
		t.Fatalf("failed end must leave the session incomplete")
	}

	fp.mu.Lock()
	fp.chatErr = nil
	fp.replies = []string{"要約", "# 記事\n\n本文"}
	fp.mu.Unlock()

	if _, err := e.End(context.Background(), sess); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if !sess.IsCompleted {
		t.Fatalf("retried end must complete the session")
	}
}

func TestInsertImageRef(t *testing.T) {
	article := "# 見出し\n\n本文の段落。"
	got := insertImageRef(article, "/images/x.png")
	want := "# 見出し\n\n![セッションのイメージ](/images/x.png)\n\n\n本文の段落。"
	if got != want {
		t.Fatalf("insertImageRef:\n got %q\nwant %q", got, want)
	}

	plain := "見出しのない本文。"
	if insertImageRef(plain, "/images/x.png") != plain {
		t.Fatalf("articles without a heading stay untouched")
	}
}

func TestGenerateReplyUsesTranscriptAsIs(t *testing.T) {
	st := newTestStore(t)
	fp := &fakeProvider{replies: []string{"ワーカーの返信"}}
	e := newTestEngine(t, st, fp)
	sess := seedSession(t, st, "u1_week1_w1")

	if err := st.InsertMessage(context.Background(), &Message{
		SessionID: sess.SessionID, Role: RoleUser, Content: "先に記録済み",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	reply, msgID, err := e.GenerateReply(context.Background(), sess)
	if err != nil {
		t.Fatalf("generate reply: %v", err)
	}
	if reply != "ワーカーの返信" || msgID == 0 {
		t.Fatalf("reply = %q id = %d", reply, msgID)
	}

	call := fp.lastCall()
	if len(call) != 2 || call[1].Content != "先に記録済み" {
		t.Fatalf("worker must send the transcript as recorded: %+v", call)
	}

	msgs, _ := st.ListMessages(context.Background(), sess.SessionID)
	if msgs[len(msgs)-1].ID != msgID {
		t.Fatalf("returned id must be the appended assistant row")
	}
}
