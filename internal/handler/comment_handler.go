package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/response"
	"community-interaction-api/internal/service"
)

type CommentHandler struct {
	commentService service.CommentService
}

func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// CreateComment godoc
// @Summary      댓글 작성
// @Description  게시글이나 이벤트에 댓글 또는 답글을 작성합니다
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateCommentRequest true "댓글 작성 요청"
// @Success      201 {object} response.SuccessResponse{data=dto.CommentResponse} "댓글 작성 성공"
// @Failure      400 {object} response.ErrorResponse "잘못된 요청"
// @Failure      404 {object} response.ErrorResponse "대상 또는 부모 댓글을 찾을 수 없음"
// @Router       /comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	authorID, ok := actorID(c)
	if !ok {
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), service.AddCommentInput{
		Subject:         domain.SubjectRef{Kind: domain.SubjectKind(req.SubjectKind), ID: req.SubjectID},
		AuthorID:        authorID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, comment)
}

// GetComment godoc
// @Summary      댓글 조회
// @Tags         comments
// @Produce      json
// @Param        commentId path int true "댓글 ID"
// @Success      200 {object} response.SuccessResponse{data=dto.CommentResponse}
// @Failure      404 {object} response.ErrorResponse "댓글을 찾을 수 없음"
// @Router       /comments/{commentId} [get]
func (h *CommentHandler) GetComment(c *gin.Context) {
	commentID, ok := uintParam(c, "commentId", "comment ID")
	if !ok {
		return
	}

	comment, err := h.commentService.GetComment(c.Request.Context(), commentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, comment)
}

// DeleteComment godoc
// @Summary      댓글 삭제
// @Description  댓글과 모든 하위 답글, 그 투표를 한 번에 삭제합니다. 작성자와 대상 소유자만 가능합니다
// @Tags         comments
// @Produce      json
// @Param        commentId path int true "댓글 ID"
// @Success      200 {object} response.SuccessResponse{data=dto.DeleteCommentResponse}
// @Failure      403 {object} response.ErrorResponse "권한 없음"
// @Failure      404 {object} response.ErrorResponse "댓글을 찾을 수 없음"
// @Router       /comments/{commentId} [delete]
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	commentID, ok := uintParam(c, "commentId", "comment ID")
	if !ok {
		return
	}

	result, err := h.commentService.DeleteComment(c.Request.Context(), commentID, userID, service.AuthorOrSubjectOwner)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// GetThread godoc
// @Summary      댓글 트리 조회
// @Tags         comments
// @Produce      json
// @Param        kind path string true "post 또는 event"
// @Param        id path int true "대상 ID"
// @Success      200 {object} response.SuccessResponse{data=[]dto.CommentNode}
// @Failure      404 {object} response.ErrorResponse "대상을 찾을 수 없음"
// @Router       /subjects/{kind}/{id}/comments [get]
func (h *CommentHandler) GetThread(c *gin.Context) {
	id, ok := uintParam(c, "id", "subject ID")
	if !ok {
		return
	}

	thread, err := h.commentService.GetThread(c.Request.Context(), domain.SubjectRef{Kind: domain.SubjectKind(c.Param("kind")), ID: id})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, thread)
}
