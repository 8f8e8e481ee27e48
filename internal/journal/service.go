package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultUserName = "参加者"

// Service is the boundary-facing session orchestrator. All transcript
// mutations for one session are serialized through a per-session mutex;
// sessions for different users proceed independently.
type Service struct {
	store    *Store
	engine   *Engine
	composer *Composer
	logger   *zap.Logger

	locks sync.Map // sessionID -> *sync.Mutex
}

func NewService(store *Store, engine *Engine, composer *Composer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, engine: engine, composer: composer, logger: logger}
}

func (s *Service) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

type StartParams struct {
	UserID           string
	UserName         string
	Week             int
	PriorInfo        string
	ConversationMode string
	SessionLength    string
}

type StartResult struct {
	SessionID        string `json:"session_id"`
	Week             int    `json:"week"`
	Theme            string `json:"theme"`
	Perspective      string `json:"perspective"`
	ConversationMode string `json:"conversation_mode"`
	SessionLength    string `json:"session_length"`
	TargetMinutes    int    `json:"target_minutes"`
	Greeting         string `json:"greeting"`
}

// StartSession validates the week before any write, gathers prior-week
// summaries, composes the system prompt, creates the record and produces the
// opening greeting.
func (s *Service) StartSession(ctx context.Context, p StartParams) (*StartResult, error) {
	def, err := s.composer.Week(p.Week)
	if err != nil {
		return nil, err
	}

	mode, _ := s.composer.Mode(p.ConversationMode)
	length, lengthDef := s.composer.Length(p.SessionLength)

	var priorSummaries []WeekSummary
	for w := 1; w < p.Week; w++ {
		past, err := s.store.FindLatestByUserWeek(ctx, p.UserID, w)
		if err != nil {
			continue
		}
		if past.Summary != "" {
			priorSummaries = append(priorSummaries, WeekSummary{Week: w, Summary: past.Summary})
		}
	}

	systemPrompt, err := s.composer.Compose(p.Week, mode, length, p.PriorInfo, priorSummaries)
	if err != nil {
		return nil, err
	}

	userName := p.UserName
	if userName == "" {
		userName = defaultUserName
	}

	sess := &Session{
		SessionID:        NewSessionID(p.UserID, p.Week, time.Now()),
		UserID:           p.UserID,
		UserName:         userName,
		Week:             p.Week,
		Theme:            def.Theme,
		Perspective:      def.Perspective,
		ConversationMode: mode,
		SessionLength:    length,
		TargetMinutes:    lengthDef.TargetMinutes,
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.store.InsertMessage(ctx, &Message{
		SessionID: sess.SessionID,
		Role:      RoleSystem,
		Content:   systemPrompt,
	}); err != nil {
		return nil, err
	}

	unlock := s.lockSession(sess.SessionID)
	greeting, err := s.engine.Greet(ctx, sess)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("session started",
		zap.String("session_id", sess.SessionID),
		zap.Int("week", p.Week),
		zap.String("mode", mode),
		zap.String("length", length))

	return &StartResult{
		SessionID:        sess.SessionID,
		Week:             sess.Week,
		Theme:            sess.Theme,
		Perspective:      sess.Perspective,
		ConversationMode: sess.ConversationMode,
		SessionLength:    sess.SessionLength,
		TargetMinutes:    sess.TargetMinutes,
		Greeting:         greeting,
	}, nil
}

// Greeting returns the session opener. The greeting is generated at session
// start; if it is already in the transcript it is served from there instead
// of calling the completion service again.
func (s *Service) Greeting(ctx context.Context, sessionID string) (string, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	msgs, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return "", err
	}
	for _, m := range msgs {
		if m.Role == RoleAssistant {
			return m.Content, nil
		}
		if m.Role == RoleUser {
			break
		}
	}
	return s.engine.Greet(ctx, sess)
}

// SendMessage runs one conversation turn.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) (string, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.engine.Turn(ctx, sess, text)
}

type ExistingSession struct {
	SessionID        string    `json:"session_id"`
	Week             int       `json:"week"`
	Theme            string    `json:"theme"`
	ConversationMode string    `json:"conversation_mode"`
	SessionLength    string    `json:"session_length"`
	MessageCount     int64     `json:"message_count"`
	CreatedAt        time.Time `json:"created_at"`
	LastSavedAt      time.Time `json:"last_saved_at"`
}

// CheckExisting reports metadata for the latest session of a user/week, or
// nil when there is none. The transcript itself is not exposed.
func (s *Service) CheckExisting(ctx context.Context, userID string, week int) (*ExistingSession, error) {
	sess, err := s.store.FindLatestByUserWeek(ctx, userID, week)
	if err != nil {
		if err == ErrSessionNotFound {
			return nil, nil
		}
		return nil, err
	}

	cnt, err := s.store.CountMessages(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	// the initial system prompt is not a conversational message
	if cnt > 0 {
		cnt--
	}

	return &ExistingSession{
		SessionID:        sess.SessionID,
		Week:             sess.Week,
		Theme:            sess.Theme,
		ConversationMode: sess.ConversationMode,
		SessionLength:    sess.SessionLength,
		MessageCount:     cnt,
		CreatedAt:        sess.CreatedAt,
		LastSavedAt:      sess.LastSavedAt,
	}, nil
}

type MessageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionView struct {
	SessionID   string        `json:"session_id"`
	Week        int           `json:"week"`
	Theme       string        `json:"theme"`
	Perspective string        `json:"perspective"`
	Article     string        `json:"article,omitempty"`
	Summary     string        `json:"summary,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	ImageURL    string        `json:"image_url,omitempty"`
	Messages    []MessageView `json:"messages"`
}

// Resume loads a session for continuation. System messages are redacted from
// the returned transcript; they are an implementation detail of the
// facilitation prompt.
func (s *Service) Resume(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &SessionView{
		SessionID:   sess.SessionID,
		Week:        sess.Week,
		Theme:       sess.Theme,
		Perspective: sess.Perspective,
		Article:     sess.Article,
		Summary:     sess.Summary,
		CompletedAt: sess.CompletedAt,
		ImageURL:    sess.ImageURL,
		Messages:    make([]MessageView, 0, len(msgs)),
	}
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		view.Messages = append(view.Messages, MessageView{Role: m.Role, Content: m.Content})
	}
	return view, nil
}

// SetFortune appends one fortune addendum system message per key, in the
// order given. Keys are validated up front; an unknown key rejects the whole
// request before any write. The next turn carries the effect.
func (s *Service) SetFortune(ctx context.Context, sessionID string, keys []string) ([]string, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	// loaded under the lock so a concurrent writer's session update is seen
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userName := sess.UserName
	if userName == "" {
		userName = defaultUserName
	}

	blocks := make([]string, 0, len(keys))
	for _, k := range keys {
		block, err := s.composer.FortuneBlock(k, userName)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	for _, block := range blocks {
		if err := s.store.InsertMessage(ctx, &Message{
			SessionID: sessionID,
			Role:      RoleSystem,
			Content:   block,
		}); err != nil {
			return nil, err
		}
	}

	sess.FortuneTypes = keys
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return keys, nil
}

// OmakaseFortune lets the facilitation agent pick the divination styles
// itself.
func (s *Service) OmakaseFortune(ctx context.Context, sessionID string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.store.InsertMessage(ctx, &Message{
		SessionID: sessionID,
		Role:      RoleSystem,
		Content:   s.composer.OmakaseBlock(),
	}); err != nil {
		return err
	}

	sess.FortuneMode = "omakase"
	return s.store.SaveSession(ctx, sess)
}

// EndSession finishes the session and returns the artifacts. The session is
// loaded under the per-session lock: an end that waited on a concurrent end
// observes its completion and reuses the stored artifacts instead of
// regenerating them.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*EndResult, *Session, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.engine.End(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	return res, sess, nil
}

// ManualSave forces a durable save without mutating the transcript.
func (s *Service) ManualSave(ctx context.Context, sessionID string) (time.Time, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return time.Time{}, err
	}
	return sess.LastSavedAt, nil
}

type ReportView struct {
	Article     string     `json:"article"`
	Summary     string     `json:"summary"`
	Theme       string     `json:"theme"`
	Week        int        `json:"week"`
	ImageURL    string     `json:"image_url,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Report returns the artifacts of the latest completed session for a
// user/week. Incomplete sessions report not-found.
func (s *Service) Report(ctx context.Context, userID string, week int) (*ReportView, error) {
	sess, err := s.store.FindLatestByUserWeek(ctx, userID, week)
	if err != nil {
		return nil, err
	}
	if !sess.IsCompleted || sess.Article == "" {
		return nil, ErrSessionNotFound
	}
	return &ReportView{
		Article:     sess.Article,
		Summary:     sess.Summary,
		Theme:       sess.Theme,
		Week:        sess.Week,
		ImageURL:    sess.ImageURL,
		CompletedAt: sess.CompletedAt,
	}, nil
}

type SessionListItem struct {
	SessionID    string    `json:"session_id"`
	Week         int       `json:"week"`
	Theme        string    `json:"theme"`
	CreatedAt    time.Time `json:"created_at"`
	Summary      string    `json:"summary,omitempty"`
	MessageCount int64     `json:"message_count"`
}

// ListSessions returns per-user session metadata, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]SessionListItem, error) {
	sessions, err := s.store.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]SessionListItem, 0, len(sessions))
	for _, sess := range sessions {
		cnt, err := s.store.CountMessages(ctx, sess.SessionID)
		if err != nil {
			return nil, err
		}
		if cnt > 0 {
			cnt--
		}
		items = append(items, SessionListItem{
			SessionID:    sess.SessionID,
			Week:         sess.Week,
			Theme:        sess.Theme,
			CreatedAt:    sess.CreatedAt,
			Summary:      sess.Summary,
			MessageCount: cnt,
		})
	}
	return items, nil
}
