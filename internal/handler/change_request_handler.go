package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type changeRequestService interface {
	Submit(ctx context.Context, req dto.SubmitChangeRequest) (*models.ChangeRequest, error)
	List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.ChangeRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ChangeRequest, error)
	FirstTierReview(ctx context.Context, id string, approve bool, reviewerID string) (*models.ChangeRequest, error)
	Reject(ctx context.Context, id string, reviewerID string) (*models.ChangeRequest, error)
	SecondTierExecute(ctx context.Context, id string, executorID string) (*dto.ExecutionResult, error)
}

// ChangeRequestHandler exposes the two-tier change request workflow.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(svc changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: svc}
}

// Submit godoc
// @Summary Submit a change request
// @Description Students always submit for themselves; admins may name the student.
// @Tags Change Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitChangeRequest true "Change request"
// @Success 201 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if claims.Role == models.RoleStudent {
		req.StudentID = claims.UserID
	}
	request, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusCreated, request)
}

// List godoc
// @Summary List change requests
// @Tags Change Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param studentId query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	query := dto.ChangeRequestQuery{StudentID: c.Query("studentId")}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if status := strings.TrimSpace(raw); status != "" {
			query.Status = append(query.Status, models.ChangeRequestStatus(status))
		}
	}
	requests, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, requests)
}

// Get godoc
// @Summary Get change request
// @Tags Change Requests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, request)
}

// Review godoc
// @Summary First-tier review
// @Tags Change Requests
// @Accept json
// @Produce json
// @Param id path string true "Change request ID"
// @Param payload body dto.FirstTierReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /change-requests/{id}/review [post]
func (h *ChangeRequestHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.FirstTierReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if req.Approve == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "approve is required"))
		return
	}
	request, err := h.service.FirstTierReview(c.Request.Context(), c.Param("id"), *req.Approve, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, request)
}

// Reject godoc
// @Summary Reject at first tier
// @Tags Change Requests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /change-requests/{id}/reject [post]
func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, request)
}

// Execute godoc
// @Summary Second-tier execution
// @Tags Change Requests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /change-requests/{id}/execute [post]
func (h *ChangeRequestHandler) Execute(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.SecondTierExecute(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
