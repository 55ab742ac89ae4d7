package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/pkg/export"
	"github.com/noah-isme/learnhub-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, taskID string, req models.SubmitRequest, studentID string) (*models.Submission, error)
	Grade(ctx context.Context, submissionID string, req models.GradeRequest, callerID string) (*models.Submission, error)
	Get(ctx context.Context, submissionID string) (*models.Submission, error)
	ListForTask(ctx context.Context, taskID, callerID string, page, size int) ([]models.Submission, *models.Pagination, error)
	ListForStudent(ctx context.Context, studentID string, page, size int) ([]models.Submission, *models.Pagination, error)
	ExportGrades(ctx context.Context, taskID, callerID, format string) (*export.File, error)
}

// SubmissionHandler exposes the submit and grade workflow.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Submit godoc
// @Summary Submit an answer
// @Description Re-submitting replaces the previous answer
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param payload body models.SubmitRequest true "Submission"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tasks/{id}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.SubmitRequest
	if !bindJSON(c, &req, "invalid submission payload") {
		return
	}
	submission, err := h.service.Submit(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// ListForTask godoc
// @Summary List submissions of a task
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tasks/{id}/submissions [get]
func (h *SubmissionHandler) ListForTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	submissions, pagination, err := h.service.ListForTask(c.Request.Context(), c.Param("id"), userID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, pagination)
}

// ExportGrades godoc
// @Summary Export grade sheet
// @Tags Submissions
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tasks/{id}/grades/export [get]
func (h *SubmissionHandler) ExportGrades(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	file, err := h.service.ExportGrades(c.Request.Context(), c.Param("id"), userID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Body)
}

// ListMine godoc
// @Summary List my submissions
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions/my [get]
func (h *SubmissionHandler) ListMine(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	submissions, pagination, err := h.service.ListForStudent(c.Request.Context(), userID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, pagination)
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Grade godoc
// @Summary Grade submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param payload body models.GradeRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/grade [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.GradeRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	submission, err := h.service.Grade(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}
