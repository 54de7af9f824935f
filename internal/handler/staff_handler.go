package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/service"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

// StaffHandler handles staff, HOD and allocation endpoints.
type StaffHandler struct {
	service *service.StaffService
}

// NewStaffHandler constructs a staff handler.
func NewStaffHandler(svc *service.StaffService) *StaffHandler {
	return &StaffHandler{service: svc}
}

// List godoc
// @Summary List staff
// @Tags Staff
// @Produce json
// @Param department query string false "Department code"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	staff, err := h.service.List(c.Request.Context(), c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, staff)
}

// Get godoc
// @Summary Get staff member
// @Tags Staff
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	member, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, member)
}

// Create godoc
// @Summary Create staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body dto.CreateStaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Router /staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	member, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusCreated, member)
}

// Update godoc
// @Summary Update staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body dto.UpdateStaffRequest true "Staff payload"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	var req dto.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	member, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, member)
}

// Delete godoc
// @Summary Delete staff member
// @Tags Staff
// @Param id path string true "Staff ID"
// @Success 204
// @Router /staff/{id} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetHOD godoc
// @Summary Set head of department status
// @Description The staff id changes with the flag; the response carries the new id.
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body dto.SetHODRequest true "HOD flag"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/hod [put]
func (h *StaffHandler) SetHOD(c *gin.Context) {
	var req dto.SetHODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if req.IsHod == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isHod is required"))
		return
	}
	member, err := h.service.SetHOD(c.Request.Context(), c.Param("id"), *req.IsHod)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, member)
}

// AllocateSubjects godoc
// @Summary Allocate subjects
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body dto.AllocateSubjectsRequest true "Subjects"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/allocation [put]
func (h *StaffHandler) AllocateSubjects(c *gin.Context) {
	var req dto.AllocateSubjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	member, err := h.service.AllocateSubjects(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, member)
}

// ReviewAllocation godoc
// @Summary Verify or reject a pending allocation
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body dto.ReviewAllocationRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /staff/{id}/allocation/review [post]
func (h *StaffHandler) ReviewAllocation(c *gin.Context) {
	var req dto.ReviewAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	if req.Approve == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "approve is required"))
		return
	}
	member, err := h.service.ReviewAllocation(c.Request.Context(), c.Param("id"), *req.Approve)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, member)
}
