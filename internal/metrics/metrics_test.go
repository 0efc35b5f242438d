package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	return NewWithRegistry(registry, zap.NewNop()), registry
}

// counterValue reads a counter or gauge; Gauge is checked first since it also satisfies Counter
func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	metric := &dto.Metric{}
	switch v := c.(type) {
	case prometheus.Gauge:
		require.NoError(t, v.Write(metric))
		return metric.GetGauge().GetValue()
	case prometheus.Counter:
		require.NoError(t, v.Write(metric))
		return metric.GetCounter().GetValue()
	}
	t.Fatalf("unsupported collector %T", c)
	return 0
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordVote("post", "created")
		m.IncrementCommentCreated()
		m.AddCommentsDeleted(3)
		m.RecordRosterTransition("promoted")
		m.RecordTxRetry("unique_violation")
		m.RecordOutboxPublish(nil)
		m.RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	})
}

func TestBusinessMetrics(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordVote("comment", "created")
	m.RecordVote("comment", "created")
	m.RecordVote("comment", "flipped")
	m.AddCommentsDeleted(4)
	m.RecordRosterTransition("promoted")
	m.RecordTxRetry("serialization_failure")
	m.AddDriftRepaired("roster", 2)
	m.RecordOutboxPublish(nil)
	m.RecordOutboxPublish(errors.New("nack"))
	m.SetOutboxPending(7)

	assert.Equal(t, 2.0, counterValue(t, m.VotesCastTotal.WithLabelValues("comment", "created")))
	assert.Equal(t, 1.0, counterValue(t, m.VotesCastTotal.WithLabelValues("comment", "flipped")))
	assert.Equal(t, 4.0, counterValue(t, m.CommentsDeletedTotal))
	assert.Equal(t, 1.0, counterValue(t, m.RosterTransitionsTotal.WithLabelValues("promoted")))
	assert.Equal(t, 1.0, counterValue(t, m.TxRetriesTotal.WithLabelValues("serialization_failure")))
	assert.Equal(t, 2.0, counterValue(t, m.DriftRepairedTotal.WithLabelValues("roster")))
	assert.Equal(t, 1.0, counterValue(t, m.OutboxPublishedTotal))
	assert.Equal(t, 1.0, counterValue(t, m.OutboxPublishErrors))
	assert.Equal(t, 7.0, counterValue(t, m.OutboxPending))
}

func TestRecordHTTPRequest(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordHTTPRequest("POST", "/api/community/votes", 201, 10*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/community/votes", 409, 10*time.Millisecond)
	m.RecordHTTPRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("POST", "/api/community/votes", "2xx")))
	assert.Equal(t, 1.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("POST", "/api/community/votes", "4xx")))
	assert.Equal(t, 1.0, counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "4xx")))
}

func TestRecordDBQuery_IgnoresNotFound(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordDBQuery("SELECT", "comments", time.Millisecond, gorm.ErrRecordNotFound)
	m.RecordDBQuery("Update", "events", time.Millisecond, errors.New("disk full"))

	assert.Equal(t, 0.0, counterValue(t, m.DBQueryErrors.WithLabelValues("select", "comments", "other")))
	assert.Equal(t, 1.0, counterValue(t, m.DBQueryErrors.WithLabelValues("update", "events", "other")))
}

func TestUpdateDBStats(t *testing.T) {
	m, _ := newTestMetrics(t)

	stats := sql.DBStats{MaxOpenConnections: 25, OpenConnections: 4, InUse: 3, Idle: 1, WaitCount: 7, WaitDuration: 2 * time.Second}
	m.UpdateDBStats(stats)
	m.UpdateDBStats(stats)

	assert.Equal(t, 4.0, counterValue(t, m.DBConnectionsOpen))
	assert.Equal(t, 25.0, counterValue(t, m.DBConnectionsMax))
	// cumulative pool counters are not double counted across samples
	assert.Equal(t, 7.0, counterValue(t, m.DBConnectionWaitTotal))
	assert.Equal(t, 2.0, counterValue(t, m.DBConnectionWaitDuration))
}

func TestDBErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "중복 키", err: gorm.ErrDuplicatedKey, want: "duplicate"},
		{name: "pg unique 위반", err: &pgconn.PgError{Code: "23505"}, want: "duplicate"},
		{name: "직렬화 실패", err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), want: "conflict"},
		{name: "데드락", err: &pgconn.PgError{Code: "40P01"}, want: "conflict"},
		{name: "락 타임아웃", err: &pgconn.PgError{Code: "55P03"}, want: "lock_timeout"},
		{name: "sqlite 잠김", err: errors.New("database is locked"), want: "conflict"},
		{name: "취소", err: context.Canceled, want: "canceled"},
		{name: "기타", err: errors.New("boom"), want: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dbErrorKind(tt.err))
		})
	}
}

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {204, "2xx"}, {301, "3xx"}, {403, "4xx"}, {409, "4xx"}, {503, "5xx"}, {100, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeStatus(tt.code), "code %d", tt.code)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{name: "숫자 ID 치환", endpoint: "/api/users/42/notifications", want: "/api/users/{id}/notifications"},
		{name: "끝의 숫자 ID", endpoint: "/api/events/7", want: "/api/events/{id}"},
		{name: "연속된 숫자 ID", endpoint: "/a/1/2/3", want: "/a/{id}/{id}/{id}"},
		{name: "숫자 없음", endpoint: "/api/notifications/bulk", want: "/api/notifications/bulk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEndpoint(tt.endpoint))
		})
	}
}

func TestShouldSkipEndpoint(t *testing.T) {
	assert.True(t, ShouldSkipEndpoint("/metrics"))
	assert.True(t, ShouldSkipEndpoint("/api/community/health"))
	assert.True(t, ShouldSkipEndpoint("/ready"))
	assert.False(t, ShouldSkipEndpoint("/api/community/votes"))
}
