package journal

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Session{}, &Message{}, &Job{}))
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(openTestDB(t), NewMemoryCache(time.Minute), nil)
}

func TestCreateAndGetSession(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sess := &Session{
		SessionID: "u1_week1_100",
		UserID:    "u1",
		Week:      1,
		Theme:     `あなたの"はたらくウェルビーイング"は？`,
	}
	require.NoError(t, st.CreateSession(ctx, sess))
	require.False(t, sess.LastSavedAt.IsZero(), "creation stamps lastSavedAt")

	got, err := st.GetSession(ctx, "u1_week1_100")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)

	err = st.CreateSession(ctx, &Session{SessionID: "u1_week1_100", UserID: "u1", Week: 1})
	require.ErrorIs(t, err, ErrDuplicateSession)

	_, err = st.GetSession(ctx, "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetSessionServedFromCache(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sess := &Session{SessionID: "u1_week1_200", UserID: "u1", Week: 1}
	require.NoError(t, st.CreateSession(ctx, sess))

	// bypass the store: the cached copy must still be served
	require.NoError(t, st.db.Where("session_id = ?", sess.SessionID).Delete(&Session{}).Error)

	got, err := st.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	require.Equal(t, sess.SessionID, got.SessionID)
}

func TestFindLatestByUserWeek(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateSession(ctx, &Session{SessionID: "u1_week2_100", UserID: "u1", Week: 2}))
	require.NoError(t, st.CreateSession(ctx, &Session{SessionID: "u1_week2_200", UserID: "u1", Week: 2}))
	require.NoError(t, st.CreateSession(ctx, &Session{SessionID: "u2_week2_300", UserID: "u2", Week: 2}))

	got, err := st.FindLatestByUserWeek(ctx, "u1", 2)
	require.NoError(t, err)
	require.Equal(t, "u1_week2_200", got.SessionID)

	_, err = st.FindLatestByUserWeek(ctx, "u1", 3)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSaveSessionStampsAndWritesThrough(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sess := &Session{SessionID: "u1_week1_300", UserID: "u1", Week: 1}
	require.NoError(t, st.CreateSession(ctx, sess))
	created := sess.LastSavedAt

	time.Sleep(5 * time.Millisecond)
	sess.Summary = "まとめ"
	require.NoError(t, st.SaveSession(ctx, sess))
	require.True(t, sess.LastSavedAt.After(created))

	cached, ok := st.cache.Get(ctx, sess.SessionID)
	require.True(t, ok)
	require.Equal(t, "まとめ", cached.Summary)
}

func TestTranscriptOrderAndCounts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	const sid = "u1_week1_400"

	for _, m := range []Message{
		{SessionID: sid, Role: RoleSystem, Content: "prompt"},
		{SessionID: sid, Role: RoleAssistant, Content: "greeting"},
		{SessionID: sid, Role: RoleUser, Content: "hello"},
	} {
		msg := m
		require.NoError(t, st.InsertMessage(ctx, &msg))
	}

	msgs, err := st.ListMessages(ctx, sid)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, []string{RoleSystem, RoleAssistant, RoleUser},
		[]string{msgs[0].Role, msgs[1].Role, msgs[2].Role})

	last, err := st.LastMessage(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, "hello", last.Content)

	cnt, err := st.CountMessages(ctx, sid)
	require.NoError(t, err)
	require.EqualValues(t, 3, cnt)

	none, err := st.LastMessage(ctx, "empty_session")
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestListSessionsByUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateSession(ctx, &Session{SessionID: "u1_week1_100", UserID: "u1", Week: 1}))
	require.NoError(t, st.CreateSession(ctx, &Session{SessionID: "u1_week2_200", UserID: "u1", Week: 2}))
	require.NoError(t, st.CreateSession(ctx, &Session{SessionID: "u2_week1_300", UserID: "u2", Week: 1}))

	sessions, err := st.ListSessionsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "u1_week2_200", sessions[0].SessionID, "newest first")
	require.Equal(t, "u1_week1_100", sessions[1].SessionID)

	none, err := st.ListSessionsByUser(ctx, "u9")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestJobLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	j := &Job{ID: "01TESTJOB0000000000000000A", SessionID: "u1_week1_500", Prompt: "hi", Status: JobQueued}
	require.NoError(t, st.CreateJob(ctx, j))

	require.NoError(t, st.UpdateJobStatusRunning(ctx, j.ID))
	got, err := st.GetJobByID(ctx, j.ID)
	require.NoError(t, err)
	require.Equal(t, JobRunning, got.Status)

	require.NoError(t, st.MarkJobSucceeded(ctx, j.ID, 42))
	got, err = st.GetJobByID(ctx, j.ID)
	require.NoError(t, err)
	require.Equal(t, JobSucceeded, got.Status)
	require.NotNil(t, got.ResultMessageID)
	require.EqualValues(t, 42, *got.ResultMessageID)
}

func TestCreateJobOrGetExisting(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	key := "idempo-key-1"

	first := &Job{ID: "01TESTJOB0000000000000000B", SessionID: "s", Prompt: "p", IdempotencyKey: &key, Status: JobQueued}
	j, created, err := st.CreateJobOrGetExisting(ctx, first)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, first.ID, j.ID)

	second := &Job{ID: "01TESTJOB0000000000000000C", SessionID: "s", Prompt: "p", IdempotencyKey: &key, Status: JobQueued}
	j, created, err = st.CreateJobOrGetExisting(ctx, second)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, j.ID, "same key returns the original job")
}
