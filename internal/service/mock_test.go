package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/client"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/response"
)

// setupTestDB opens a private in-memory SQLite database with the engine schema.
// A single connection serializes transactions the way row locks do on PostgreSQL.
func setupTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// MockNotificationClient records notifications instead of sending them
type MockNotificationClient struct {
	mu        sync.Mutex
	Sent      []client.NotificationEvent
	BulkCalls int
	Err       error
}

func (m *MockNotificationClient) SendNotification(ctx context.Context, event client.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, event)
	return m.Err
}

func (m *MockNotificationClient) SendBulkNotifications(ctx context.Context, events []client.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BulkCalls++
	m.Sent = append(m.Sent, events...)
	return m.Err
}

func (m *MockNotificationClient) BulkCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BulkCalls
}

func (m *MockNotificationClient) Events() []client.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.NotificationEvent(nil), m.Sent...)
}

// testEngine bundles every service over one database
type testEngine struct {
	db       *gorm.DB
	votes    VoteService
	comments CommentService
	roster   RosterService
	subjects SubjectService
	notifier *MockNotificationClient
}

func newTestEngine(t testing.TB) *testEngine {
	t.Helper()

	db := setupTestDB(t)
	logger := zap.NewNop()
	tx := database.NewTransactor(db, logger, database.WithRetryInterval(0))
	tallyCache := cache.NewNoopTallyCache()
	notifier := &MockNotificationClient{}

	return &testEngine{
		db:       db,
		votes:    NewVoteService(db, tx, tallyCache, nil, logger),
		comments: NewCommentService(db, tx, tallyCache, notifier, nil, logger),
		roster:   NewRosterService(db, tx, notifier, nil, logger),
		subjects: NewSubjectService(db, tallyCache, logger),
		notifier: notifier,
	}
}

func (e *testEngine) createPost(t testing.TB, ownerID uint) *domain.Post {
	t.Helper()
	post := &domain.Post{OwnerID: ownerID, Title: "post"}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

func (e *testEngine) createEvent(t testing.TB, ownerID uint, capacity int) *domain.Event {
	t.Helper()
	event := &domain.Event{OwnerID: ownerID, Title: "event", Capacity: capacity}
	require.NoError(t, e.db.Create(event).Error)
	return event
}

func (e *testEngine) addComment(t testing.TB, subject domain.SubjectRef, authorID uint, parentID *uint) uint {
	t.Helper()
	c, err := e.comments.AddComment(context.Background(), AddCommentInput{
		Subject:         subject,
		AuthorID:        authorID,
		Content:         "comment",
		ParentCommentID: parentID,
	})
	require.NoError(t, err)
	return c.ID
}

func (e *testEngine) reloadEvent(t testing.TB, id uint) *domain.Event {
	t.Helper()
	var event domain.Event
	require.NoError(t, e.db.First(&event, id).Error)
	return &event
}

func (e *testEngine) countRows(t testing.TB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func requireAppError(t testing.TB, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, response.HasCode(err, code), "expected %s, got %v", code, err)
}

func uintPtr(v uint) *uint {
	return &v
}
