package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

// CatalogHandler handles department and subject endpoints.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListDepartments godoc
// @Summary List departments
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *CatalogHandler) ListDepartments(c *gin.Context) {
	departments, err := h.service.ListDepartments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, departments)
}

// UpsertDepartment godoc
// @Summary Create or rename department
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Department code"
// @Param payload body dto.DepartmentRequest true "Department"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [put]
func (h *CatalogHandler) UpsertDepartment(c *gin.Context) {
	var req dto.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	req.ID = c.Param("id")
	department, err := h.service.UpsertDepartment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, department)
}

// DeleteDepartment godoc
// @Summary Delete department
// @Tags Catalog
// @Param id path string true "Department code"
// @Success 204
// @Router /departments/{id} [delete]
func (h *CatalogHandler) DeleteDepartment(c *gin.Context) {
	if err := h.service.DeleteDepartment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List subjects
// @Description Remote entries win over cached ones; cache-only codes are appended.
// @Tags Catalog
// @Produce json
// @Param department query string false "Department code"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.service.ListSubjects(c.Request.Context(), c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, subjects)
}

// UpsertSubject godoc
// @Summary Create or replace subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Param code path string true "Subject code"
// @Param payload body dto.SubjectRequest true "Subject"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code} [put]
func (h *CatalogHandler) UpsertSubject(c *gin.Context) {
	var req dto.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	req.Code = c.Param("code")
	subject, err := h.service.UpsertSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, subject)
}

// DeleteSubject godoc
// @Summary Delete subject
// @Tags Catalog
// @Param code path string true "Subject code"
// @Success 204
// @Router /subjects/{code} [delete]
func (h *CatalogHandler) DeleteSubject(c *gin.Context) {
	if err := h.service.DeleteSubject(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
