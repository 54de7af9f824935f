package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

// ParentHandler handles parent profile endpoints.
type ParentHandler struct {
	service *service.ParentService
}

// NewParentHandler constructs a parent handler.
func NewParentHandler(svc *service.ParentService) *ParentHandler {
	return &ParentHandler{service: svc}
}

// List godoc
// @Summary List parents
// @Tags Parents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /parents [get]
func (h *ParentHandler) List(c *gin.Context) {
	parents, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, parents)
}

// Get godoc
// @Summary Get parent
// @Tags Parents
// @Produce json
// @Param id path string true "Parent ID"
// @Success 200 {object} response.Envelope
// @Router /parents/{id} [get]
func (h *ParentHandler) Get(c *gin.Context) {
	parent, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, parent)
}

// Upsert godoc
// @Summary Create or replace parent
// @Tags Parents
// @Accept json
// @Produce json
// @Param id path string true "Parent ID"
// @Param payload body dto.ParentRequest true "Parent payload"
// @Success 200 {object} response.Envelope
// @Router /parents/{id} [put]
func (h *ParentHandler) Upsert(c *gin.Context) {
	var req dto.ParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	req.ID = c.Param("id")
	parent, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, parent)
}

// Delete godoc
// @Summary Delete parent
// @Tags Parents
// @Param id path string true "Parent ID"
// @Success 204
// @Router /parents/{id} [delete]
func (h *ParentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
