package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/middleware"
	"community-interaction-api/internal/service"
)

// MockVoteService is a mock implementation of VoteService
type MockVoteService struct {
	CastVoteFunc func(ctx context.Context, target domain.TargetRef, voterID uint, direction domain.VoteDirection) (*dto.VoteResponse, error)
	GetVoteFunc  func(ctx context.Context, target domain.TargetRef, voterID uint) (*domain.VoteDirection, error)
}

func (m *MockVoteService) CastVote(ctx context.Context, target domain.TargetRef, voterID uint, direction domain.VoteDirection) (*dto.VoteResponse, error) {
	if m.CastVoteFunc != nil {
		return m.CastVoteFunc(ctx, target, voterID, direction)
	}
	return &dto.VoteResponse{}, nil
}

func (m *MockVoteService) GetVote(ctx context.Context, target domain.TargetRef, voterID uint) (*domain.VoteDirection, error) {
	if m.GetVoteFunc != nil {
		return m.GetVoteFunc(ctx, target, voterID)
	}
	return nil, nil
}

// MockCommentService is a mock implementation of CommentService
type MockCommentService struct {
	AddCommentFunc    func(ctx context.Context, input service.AddCommentInput) (*dto.CommentResponse, error)
	DeleteCommentFunc func(ctx context.Context, commentID, actorID uint, authorize service.DeleteAuthorizer) (*dto.DeleteCommentResponse, error)
	GetCommentFunc    func(ctx context.Context, commentID uint) (*dto.CommentResponse, error)
	GetThreadFunc     func(ctx context.Context, subject domain.SubjectRef) ([]*dto.CommentNode, error)
}

func (m *MockCommentService) AddComment(ctx context.Context, input service.AddCommentInput) (*dto.CommentResponse, error) {
	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(ctx, input)
	}
	return &dto.CommentResponse{}, nil
}

func (m *MockCommentService) DeleteComment(ctx context.Context, commentID, actorID uint, authorize service.DeleteAuthorizer) (*dto.DeleteCommentResponse, error) {
	if m.DeleteCommentFunc != nil {
		return m.DeleteCommentFunc(ctx, commentID, actorID, authorize)
	}
	return &dto.DeleteCommentResponse{}, nil
}

func (m *MockCommentService) GetComment(ctx context.Context, commentID uint) (*dto.CommentResponse, error) {
	if m.GetCommentFunc != nil {
		return m.GetCommentFunc(ctx, commentID)
	}
	return &dto.CommentResponse{ID: commentID}, nil
}

func (m *MockCommentService) GetThread(ctx context.Context, subject domain.SubjectRef) ([]*dto.CommentNode, error) {
	if m.GetThreadFunc != nil {
		return m.GetThreadFunc(ctx, subject)
	}
	return []*dto.CommentNode{}, nil
}

// MockRosterService is a mock implementation of RosterService
type MockRosterService struct {
	JoinFunc           func(ctx context.Context, eventID, memberID uint) (*dto.JoinResponse, error)
	LeaveFunc          func(ctx context.Context, eventID, memberID uint) (*dto.LeaveResponse, error)
	UpdateCapacityFunc func(ctx context.Context, eventID, actorID uint, capacity int) (*dto.CapacityResponse, error)
	GetRosterFunc      func(ctx context.Context, eventID uint) (*dto.RosterResponse, error)
	GetPositionFunc    func(ctx context.Context, eventID, memberID uint) (*dto.ParticipantResponse, error)
}

func (m *MockRosterService) Join(ctx context.Context, eventID, memberID uint) (*dto.JoinResponse, error) {
	if m.JoinFunc != nil {
		return m.JoinFunc(ctx, eventID, memberID)
	}
	return &dto.JoinResponse{EventID: eventID, MemberID: memberID, State: "confirmed"}, nil
}

func (m *MockRosterService) Leave(ctx context.Context, eventID, memberID uint) (*dto.LeaveResponse, error) {
	if m.LeaveFunc != nil {
		return m.LeaveFunc(ctx, eventID, memberID)
	}
	return &dto.LeaveResponse{EventID: eventID, MemberID: memberID}, nil
}

func (m *MockRosterService) UpdateCapacity(ctx context.Context, eventID, actorID uint, capacity int) (*dto.CapacityResponse, error) {
	if m.UpdateCapacityFunc != nil {
		return m.UpdateCapacityFunc(ctx, eventID, actorID, capacity)
	}
	return &dto.CapacityResponse{EventID: eventID, Capacity: capacity, PromotedMembers: []uint{}}, nil
}

func (m *MockRosterService) GetRoster(ctx context.Context, eventID uint) (*dto.RosterResponse, error) {
	if m.GetRosterFunc != nil {
		return m.GetRosterFunc(ctx, eventID)
	}
	return &dto.RosterResponse{EventID: eventID}, nil
}

func (m *MockRosterService) GetPosition(ctx context.Context, eventID, memberID uint) (*dto.ParticipantResponse, error) {
	if m.GetPositionFunc != nil {
		return m.GetPositionFunc(ctx, eventID, memberID)
	}
	return &dto.ParticipantResponse{MemberID: memberID}, nil
}

// withUser stands in for the auth middleware; userID 0 leaves the request anonymous
func withUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.ContextUserID, userID)
		}
		c.Next()
	}
}

func performRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("Failed to encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return resp.Error.Code
}

func dataField(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %v", resp["data"])
	}
	return data
}

func init() {
	gin.SetMode(gin.TestMode)
}

