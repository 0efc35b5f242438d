package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/response"
	"community-interaction-api/internal/service"
)

type VoteHandler struct {
	voteService service.VoteService
}

func NewVoteHandler(voteService service.VoteService) *VoteHandler {
	return &VoteHandler{
		voteService: voteService,
	}
}

// CastVote godoc
// @Summary      투표 토글
// @Description  없음이면 생성, 같은 방향이면 취소, 반대 방향이면 뒤집기
// @Tags         votes
// @Accept       json
// @Produce      json
// @Param        request body dto.CastVoteRequest true "투표 요청"
// @Success      200 {object} response.SuccessResponse{data=dto.VoteResponse} "투표 후 집계"
// @Failure      400 {object} response.ErrorResponse "잘못된 요청"
// @Failure      404 {object} response.ErrorResponse "대상을 찾을 수 없음"
// @Failure      409 {object} response.ErrorResponse "동시 수정 충돌"
// @Router       /votes [post]
func (h *VoteHandler) CastVote(c *gin.Context) {
	voterID, ok := actorID(c)
	if !ok {
		return
	}

	var req dto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	target := domain.TargetRef{Kind: domain.TargetKind(req.TargetKind), ID: req.TargetID}
	result, err := h.voteService.CastVote(c.Request.Context(), target, voterID, domain.VoteDirection(req.Direction))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// GetMyVote godoc
// @Summary      내 투표 조회
// @Tags         votes
// @Produce      json
// @Param        kind path string true "post, event, comment"
// @Param        id path int true "대상 ID"
// @Success      200 {object} response.SuccessResponse "현재 방향, 없으면 null"
// @Router       /votes/{kind}/{id} [get]
func (h *VoteHandler) GetMyVote(c *gin.Context) {
	voterID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id", "target ID")
	if !ok {
		return
	}

	target := domain.TargetRef{Kind: domain.TargetKind(c.Param("kind")), ID: id}
	vote, err := h.voteService.GetVote(c.Request.Context(), target, voterID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"vote": vote})
}
