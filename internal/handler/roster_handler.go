package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/response"
	"community-interaction-api/internal/service"
)

type RosterHandler struct {
	rosterService service.RosterService
}

func NewRosterHandler(rosterService service.RosterService) *RosterHandler {
	return &RosterHandler{
		rosterService: rosterService,
	}
}

// Join godoc
// @Summary      이벤트 참가
// @Description  자리가 있으면 확정, 없으면 대기 명단 끝에 추가됩니다
// @Tags         roster
// @Produce      json
// @Param        eventId path int true "이벤트 ID"
// @Success      201 {object} response.SuccessResponse{data=dto.JoinResponse}
// @Failure      404 {object} response.ErrorResponse "이벤트를 찾을 수 없음"
// @Failure      409 {object} response.ErrorResponse "이미 참가 중"
// @Router       /events/{eventId}/roster [post]
func (h *RosterHandler) Join(c *gin.Context) {
	memberID, ok := actorID(c)
	if !ok {
		return
	}
	eventID, ok := uintParam(c, "eventId", "event ID")
	if !ok {
		return
	}

	result, err := h.rosterService.Join(c.Request.Context(), eventID, memberID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, result)
}

// Leave godoc
// @Summary      이벤트 참가 취소
// @Description  확정 멤버가 떠나면 가장 먼저 대기한 멤버가 승격됩니다
// @Tags         roster
// @Produce      json
// @Param        eventId path int true "이벤트 ID"
// @Success      200 {object} response.SuccessResponse{data=dto.LeaveResponse}
// @Failure      404 {object} response.ErrorResponse "명단에 없음"
// @Router       /events/{eventId}/roster [delete]
func (h *RosterHandler) Leave(c *gin.Context) {
	memberID, ok := actorID(c)
	if !ok {
		return
	}
	eventID, ok := uintParam(c, "eventId", "event ID")
	if !ok {
		return
	}

	result, err := h.rosterService.Leave(c.Request.Context(), eventID, memberID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// GetRoster godoc
// @Summary      참가자 명단 조회
// @Tags         roster
// @Produce      json
// @Param        eventId path int true "이벤트 ID"
// @Success      200 {object} response.SuccessResponse{data=dto.RosterResponse}
// @Router       /events/{eventId}/roster [get]
func (h *RosterHandler) GetRoster(c *gin.Context) {
	eventID, ok := uintParam(c, "eventId", "event ID")
	if !ok {
		return
	}

	roster, err := h.rosterService.GetRoster(c.Request.Context(), eventID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, roster)
}

// GetMyPosition godoc
// @Summary      내 참가 상태 조회
// @Tags         roster
// @Produce      json
// @Param        eventId path int true "이벤트 ID"
// @Success      200 {object} response.SuccessResponse{data=dto.ParticipantResponse}
// @Router       /events/{eventId}/roster/me [get]
func (h *RosterHandler) GetMyPosition(c *gin.Context) {
	memberID, ok := actorID(c)
	if !ok {
		return
	}
	eventID, ok := uintParam(c, "eventId", "event ID")
	if !ok {
		return
	}

	position, err := h.rosterService.GetPosition(c.Request.Context(), eventID, memberID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, position)
}

// UpdateCapacity godoc
// @Summary      정원 변경
// @Description  이벤트 소유자만 가능하며, 늘어난 자리만큼 대기자가 순서대로 승격됩니다
// @Tags         roster
// @Accept       json
// @Produce      json
// @Param        eventId path int true "이벤트 ID"
// @Param        request body dto.UpdateCapacityRequest true "정원"
// @Success      200 {object} response.SuccessResponse{data=dto.CapacityResponse}
// @Failure      403 {object} response.ErrorResponse "소유자가 아님"
// @Router       /events/{eventId}/capacity [put]
func (h *RosterHandler) UpdateCapacity(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	eventID, ok := uintParam(c, "eventId", "event ID")
	if !ok {
		return
	}

	var req dto.UpdateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.rosterService.UpdateCapacity(c.Request.Context(), eventID, userID, req.Capacity)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}
