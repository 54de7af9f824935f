package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

// StudentHandler handles student record endpoints.
type StudentHandler struct {
	students *service.StudentService
	parents  *service.ParentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(students *service.StudentService, parents *service.ParentService) *StudentHandler {
	return &StudentHandler{students: students, parents: parents}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param department query string false "Department code"
// @Param tutorId query string false "Tutor staff ID"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context(), dto.StudentQuery{
		Department: c.Query("department"),
		TutorID:    c.Query("tutorId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, students)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, student)
}

// Upsert godoc
// @Summary Create or replace student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.StudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Upsert(c *gin.Context) {
	var req dto.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	req.ID = c.Param("id")
	student, err := h.students.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, student)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordAttendance godoc
// @Summary Record attendance
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.AttendanceRequest true "Attendance entry"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [post]
func (h *StudentHandler) RecordAttendance(c *gin.Context) {
	var req dto.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	student, err := h.students.RecordAttendance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, student)
}

// RecordMark godoc
// @Summary Record subject mark
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.MarkRequest true "Mark"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/marks [post]
func (h *StudentHandler) RecordMark(c *gin.Context) {
	var req dto.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	student, err := h.students.RecordMark(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, student)
}

// Parent returns the parent linked to the student.
func (h *StudentHandler) Parent(c *gin.Context) {
	parent, err := h.parents.ForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, parent)
}
