package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type tutorAssigner interface {
	Run(ctx context.Context) (*service.AssignmentResult, error)
}

// AssignmentHandler triggers tutor assignment runs.
type AssignmentHandler struct {
	service tutorAssigner
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc tutorAssigner) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Run godoc
// @Summary Assign tutors
// @Description Gives every student without a tutor one from their department, round robin over non-HOD staff.
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tutor-assignments [post]
func (h *AssignmentHandler) Run(c *gin.Context) {
	result, err := h.service.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
