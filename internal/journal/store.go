package journal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the durable session store with a volatile cache in front of it.
// Creation and completion writes propagate failure; per-turn autosaves are
// best-effort and only logged.
type Store struct {
	db     *gorm.DB
	cache  SessionCache
	logger *zap.Logger
}

func NewStore(db *gorm.DB, cache SessionCache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, cache: cache, logger: logger}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Session{}, &Message{}, &Job{})
}

// CreateSession persists a new session. Ids embed a millisecond timestamp and
// are time-unique in practice; the duplicate check is a defense.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sess.SessionID).
		Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return ErrDuplicateSession
	}

	sess.LastSavedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Set(ctx, sess)
	}
	return nil
}

// GetSession loads a session, serving from the cache when possible.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if s.cache != nil {
		if sess, ok := s.cache.Get(ctx, sessionID); ok {
			return sess, nil
		}
	}

	var sess Session
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, &sess)
	}
	return &sess, nil
}

// FindLatestByUserWeek returns the most recently created session for a
// user/week. Session ids order lexicographically by creation time within the
// prefix, so the greatest id is the newest.
func (s *Store) FindLatestByUserWeek(ctx context.Context, userID string, week int) (*Session, error) {
	var sess Session
	if err := s.db.WithContext(ctx).
		Where("session_id LIKE ?", SessionIDPrefix(userID, week)+"%").
		Order("session_id DESC").
		First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// SaveSession upserts the session row, stamping lastSavedAt, and writes
// through to the cache.
func (s *Store) SaveSession(ctx context.Context, sess *Session) error {
	sess.LastSavedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(sess).Error; err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Set(ctx, sess)
	}
	return nil
}

// Autosave is the best-effort per-turn save. Failures are logged, never
// surfaced to the conversational flow.
func (s *Store) Autosave(ctx context.Context, sess *Session) {
	if err := s.SaveSession(ctx, sess); err != nil {
		s.logger.Warn("session autosave failed",
			zap.String("session_id", sess.SessionID),
			zap.Error(err))
	}
}

func (s *Store) InsertMessage(ctx context.Context, m *Message) error {
	return s.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns the transcript in order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// LastMessage returns the newest transcript entry, or nil for an empty
// transcript.
func (s *Store) LastMessage(ctx context.Context, sessionID string) (*Message, error) {
	var m Message
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListSessionsByUser returns a user's sessions, newest first.
func (s *Store) ListSessionsByUser(ctx context.Context, userID string) ([]Session, error) {
	var sessions []Session
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("session_id DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) CountMessages(ctx context.Context, sessionID string) (int64, error) {
	var cnt int64
	err := s.db.WithContext(ctx).Model(&Message{}).
		Where("session_id = ?", sessionID).
		Count(&cnt).Error
	return cnt, err
}

// Job CRUD

func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *Store) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (s *Store) MarkJobSucceeded(ctx context.Context, id string, assistantMsgID uint64) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": assistantMsgID,
			"error":             nil,
		}).Error
}

func (s *Store) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}

func (s *Store) GetJobByIdempotencyKey(ctx context.Context, key string) (*Job, error) {
	var j Job
	if err := s.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJobOrGetExisting tries to create a job; if the idempotency key is
// already taken it returns the existing job instead.
func (s *Store) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := s.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := s.GetJobByIdempotencyKey(ctx, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
