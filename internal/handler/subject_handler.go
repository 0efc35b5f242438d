package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-interaction-api/internal/domain"
	"community-interaction-api/internal/dto"
	"community-interaction-api/internal/response"
	"community-interaction-api/internal/service"
)

type SubjectHandler struct {
	subjectService service.SubjectService
}

func NewSubjectHandler(subjectService service.SubjectService) *SubjectHandler {
	return &SubjectHandler{
		subjectService: subjectService,
	}
}

// CreatePost godoc
// @Summary      게시글 생성
// @Tags         subjects
// @Accept       json
// @Produce      json
// @Param        request body dto.CreatePostRequest true "게시글"
// @Success      201 {object} response.SuccessResponse{data=dto.PostResponse}
// @Router       /posts [post]
func (h *SubjectHandler) CreatePost(c *gin.Context) {
	ownerID, ok := actorID(c)
	if !ok {
		return
	}

	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	post, err := h.subjectService.CreatePost(c.Request.Context(), ownerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, post)
}

// CreateEvent godoc
// @Summary      이벤트 생성
// @Tags         subjects
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateEventRequest true "이벤트"
// @Success      201 {object} response.SuccessResponse{data=dto.EventResponse}
// @Router       /events [post]
func (h *SubjectHandler) CreateEvent(c *gin.Context) {
	ownerID, ok := actorID(c)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	event, err := h.subjectService.CreateEvent(c.Request.Context(), ownerID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary      이벤트 조회
// @Tags         subjects
// @Produce      json
// @Param        eventId path int true "이벤트 ID"
// @Success      200 {object} response.SuccessResponse{data=dto.EventResponse}
// @Router       /events/{eventId} [get]
func (h *SubjectHandler) GetEvent(c *gin.Context) {
	eventID, ok := uintParam(c, "eventId", "event ID")
	if !ok {
		return
	}

	event, err := h.subjectService.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, event)
}

// GetTally godoc
// @Summary      투표 집계 조회
// @Tags         votes
// @Produce      json
// @Param        kind path string true "post, event, comment"
// @Param        id path int true "대상 ID"
// @Success      200 {object} response.SuccessResponse{data=dto.TallyResponse}
// @Router       /tallies/{kind}/{id} [get]
func (h *SubjectHandler) GetTally(c *gin.Context) {
	id, ok := uintParam(c, "id", "target ID")
	if !ok {
		return
	}

	target := domain.TargetRef{Kind: domain.TargetKind(c.Param("kind")), ID: id}
	tally, err := h.subjectService.GetTally(c.Request.Context(), target)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.TallyResponse{
		TargetKind: string(target.Kind),
		TargetID:   target.ID,
		Up:         tally.Up,
		Down:       tally.Down,
	})
}
