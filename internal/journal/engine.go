package journal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiroku-app/kiroku/internal/ai"
	"go.uber.org/zap"
)

var (
	turnOptions    = ai.ChatOptions{Temperature: 0.7, MaxTokens: 500}
	summaryOptions = ai.ChatOptions{Temperature: 0.5, MaxTokens: 300}
	articleOptions = ai.ChatOptions{Temperature: 0.7, MaxTokens: 1000}
)

// Engine drives the conversation state machine for one session at a time:
// greeting, turn exchange, and end-of-session summarization, article and
// image generation.
type Engine struct {
	store    *Store
	registry *ai.Registry
	composer *Composer
	logger   *zap.Logger

	providerName string
	model        string

	// when non-empty, generated images are downloaded here and served as
	// /images/<file>; on download failure the remote URL is kept.
	imagesDir  string
	httpClient *http.Client
}

func NewEngine(store *Store, registry *ai.Registry, composer *Composer, logger *zap.Logger, providerName, model, imagesDir string) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:        store,
		registry:     registry,
		composer:     composer,
		logger:       logger,
		providerName: providerName,
		model:        model,
		imagesDir:    imagesDir,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) provider(ctx context.Context) (ai.Provider, error) {
	return e.registry.Get(ctx, e.providerName, e.model)
}

func (e *Engine) transcript(ctx context.Context, sessionID string) ([]ai.Message, error) {
	rows, err := e.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	msgs := make([]ai.Message, 0, len(rows))
	for _, m := range rows {
		msgs = append(msgs, ai.Message{Role: m.Role, Content: m.Content})
	}
	return msgs, nil
}

// Greet opens the session. The greeting instruction is ephemeral: it is sent
// to the completion service but never persisted, so the stored transcript
// gains exactly one assistant message. When the completion service is down a
// stock greeting is persisted instead so the participant still gets a warm
// opener; the failure is logged for operators.
func (e *Engine) Greet(ctx context.Context, sess *Session) (string, error) {
	msgs, err := e.transcript(ctx, sess.SessionID)
	if err != nil {
		return "", err
	}
	msgs = append(msgs, ai.Message{
		Role:    RoleUser,
		Content: e.composer.GreetingInstruction(sess.UserName, sess.Theme),
	})

	var text string
	p, err := e.provider(ctx)
	if err == nil {
		text, err = p.Chat(ctx, msgs, turnOptions)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Error("greeting generation failed",
			zap.String("session_id", sess.SessionID),
			zap.String("op", "greet"),
			zap.Error(err))
		text = e.composer.FallbackGreeting(sess.UserName, sess.Theme)
	}

	if err := e.store.InsertMessage(ctx, &Message{
		SessionID: sess.SessionID,
		Role:      RoleAssistant,
		Content:   text,
	}); err != nil {
		return "", err
	}
	e.store.Autosave(ctx, sess)
	return text, nil
}

// Turn appends the user message, asks the completion service for a reply over
// the full transcript, and appends the reply. On completion failure the user
// message stays recorded; re-invoking with the same text does not append it a
// second time, so a failed turn can be retried safely.
func (e *Engine) Turn(ctx context.Context, sess *Session, userText string) (string, error) {
	last, err := e.store.LastMessage(ctx, sess.SessionID)
	if err != nil {
		return "", err
	}
	if last == nil || last.Role != RoleUser || last.Content != userText {
		if err := e.store.InsertMessage(ctx, &Message{
			SessionID: sess.SessionID,
			Role:      RoleUser,
			Content:   userText,
		}); err != nil {
			return "", err
		}
	}

	msgs, err := e.transcript(ctx, sess.SessionID)
	if err != nil {
		return "", err
	}

	p, err := e.provider(ctx)
	if err != nil {
		return "", err
	}
	reply, err := p.Chat(ctx, msgs, turnOptions)
	if err != nil {
		e.logger.Error("reply generation failed",
			zap.String("session_id", sess.SessionID),
			zap.String("op", "turn"),
			zap.Error(err))
		return "", fmt.Errorf("completion: %w", err)
	}

	if err := e.store.InsertMessage(ctx, &Message{
		SessionID: sess.SessionID,
		Role:      RoleAssistant,
		Content:   reply,
	}); err != nil {
		return "", err
	}
	e.store.Autosave(ctx, sess)
	return reply, nil
}

// GenerateReply produces and appends an assistant reply for the transcript
// as-is. Used by the async worker after the user message was already
// recorded.
func (e *Engine) GenerateReply(ctx context.Context, sess *Session) (string, uint64, error) {
	msgs, err := e.transcript(ctx, sess.SessionID)
	if err != nil {
		return "", 0, err
	}
	p, err := e.provider(ctx)
	if err != nil {
		return "", 0, err
	}
	reply, err := p.Chat(ctx, msgs, turnOptions)
	if err != nil {
		return "", 0, err
	}
	m := &Message{SessionID: sess.SessionID, Role: RoleAssistant, Content: reply}
	if err := e.store.InsertMessage(ctx, m); err != nil {
		return "", 0, err
	}
	return reply, m.ID, nil
}

// EndResult carries the end-of-session artifacts.
type EndResult struct {
	Summary  string
	Article  string
	ImageURL string
}

// End finishes the session: a short summary, a reflective article, and an
// illustrative image. Summary or article failure aborts the whole operation
// and leaves the session incomplete and retryable; image failure is
// non-fatal. Ending an already-completed session returns the stored
// artifacts without calling any provider.
func (e *Engine) End(ctx context.Context, sess *Session) (*EndResult, error) {
	if sess.IsCompleted {
		return &EndResult{Summary: sess.Summary, Article: sess.Article, ImageURL: sess.ImageURL}, nil
	}

	msgs, err := e.transcript(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	p, err := e.provider(ctx)
	if err != nil {
		return nil, err
	}

	summaryMsgs := append(append([]ai.Message(nil), msgs...), ai.Message{
		Role:    RoleUser,
		Content: e.composer.SummaryInstruction(),
	})
	summary, err := p.Chat(ctx, summaryMsgs, summaryOptions)
	if err != nil {
		e.logger.Error("summary generation failed",
			zap.String("session_id", sess.SessionID),
			zap.String("op", "end"),
			zap.Error(err))
		return nil, fmt.Errorf("completion: %w", err)
	}

	articleMsgs := append(append([]ai.Message(nil), msgs...), ai.Message{
		Role:    RoleUser,
		Content: e.composer.ArticleInstruction(sess.Theme, sess.Perspective, sess.UserName),
	})
	article, err := p.Chat(ctx, articleMsgs, articleOptions)
	if err != nil {
		e.logger.Error("article generation failed",
			zap.String("session_id", sess.SessionID),
			zap.String("op", "end"),
			zap.Error(err))
		return nil, fmt.Errorf("completion: %w", err)
	}

	imageURL := e.generateImage(ctx, p, sess)
	if imageURL != "" {
		article = insertImageRef(article, imageURL)
	}

	now := time.Now()
	sess.Summary = summary
	sess.Article = article
	sess.ImageURL = imageURL
	sess.IsCompleted = true
	sess.CompletedAt = &now
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	return &EndResult{Summary: summary, Article: article, ImageURL: imageURL}, nil
}

// generateImage renders the session illustration. Any failure is logged and
// swallowed: completion proceeds without an image.
func (e *Engine) generateImage(ctx context.Context, p ai.Provider, sess *Session) string {
	imgProvider, ok := p.(ai.ImageProvider)
	if !ok {
		return ""
	}

	url, err := imgProvider.GenerateImage(ctx, e.composer.ImagePrompt(sess.Week, sess.Perspective))
	if err != nil {
		e.logger.Warn("image generation failed",
			zap.String("session_id", sess.SessionID),
			zap.String("op", "end"),
			zap.Error(err))
		return ""
	}

	if local, err := e.downloadImage(ctx, url, sess.SessionID); err != nil {
		e.logger.Warn("image download failed, keeping remote url",
			zap.String("session_id", sess.SessionID),
			zap.Error(err))
	} else if local != "" {
		return local
	}
	return url
}

// downloadImage stores the generated image next to the app so the article
// keeps working after the provider's temporary URL expires. Returns the
// public path, or "" when no images dir is configured.
func (e *Engine) downloadImage(ctx context.Context, url, sessionID string) (string, error) {
	if e.imagesDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(e.imagesDir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image download: status %d", resp.StatusCode)
	}

	filename := fmt.Sprintf("session_%s_%d.png", sessionID, time.Now().UnixMilli())
	path := filepath.Join(e.imagesDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return "/images/" + filename, nil
}

// insertImageRef places a markdown image reference right after the article's
// first top-level heading. Articles without a heading are left untouched.
func insertImageRef(article, imageURL string) string {
	lines := strings.Split(article, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			ref := fmt.Sprintf("![セッションのイメージ](%s)", imageURL)
			out := make([]string, 0, len(lines)+3)
			out = append(out, lines[:i+1]...)
			out = append(out, "", ref, "")
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
	}
	return article
}
