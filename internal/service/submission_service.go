package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/learnhub-api/internal/models"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
	"github.com/noah-isme/learnhub-api/pkg/export"
)

type submissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	Upsert(ctx context.Context, s *models.Submission) error
	Grade(ctx context.Context, id string, score int, feedback string, gradedAt time.Time) error
	ListByTask(ctx context.Context, taskID string, page, size int) ([]models.Submission, int, error)
	ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.Submission, int, error)
	ListAllByTask(ctx context.Context, taskID string) ([]models.Submission, error)
}

type taskReader interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type gradeRenderer interface {
	Render(format export.Format, data export.Dataset, title, baseName string) (*export.File, error)
}

var gradeSheetHeaders = []string{"Student", "Status", "Score", "Max Score", "Feedback", "Submitted At", "Graded At"}

// SubmissionService drives the submit and grade workflow.
type SubmissionService struct {
	submissions submissionRepository
	tasks       taskReader
	students    studentReader
	renderer    gradeRenderer
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService. renderer defaults to
// the CSV/PDF export renderer.
func NewSubmissionService(submissions submissionRepository, tasks taskReader, students studentReader, renderer gradeRenderer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	return &SubmissionService{
		submissions: submissions,
		tasks:       tasks,
		students:    students,
		renderer:    renderer,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the student's answer to a published task. Submitting again
// replaces the content and resets the status to SUBMITTED.
func (s *SubmissionService) Submit(ctx context.Context, taskID string, req models.SubmitRequest, studentID string) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	task, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Published {
		return nil, appErrors.ErrTaskNotPublished
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch student")
	}

	submission := &models.Submission{
		TaskID:         task.ID,
		StudentID:      student.ID,
		Content:        req.Content,
		AttachmentURLs: req.AttachmentURLs,
		Status:         models.SubmissionSubmitted,
		SubmittedAt:    s.now(),
	}
	if err := s.submissions.Upsert(ctx, submission); err != nil {
		return nil, appErrors.Internal(err, "failed to save submission")
	}
	s.metrics.RecordSubmission(models.SubmissionSubmitted)
	s.logger.Info("submission stored", zap.String("task_id", task.ID), zap.String("student_id", student.ID))

	return s.reload(ctx, submission), nil
}

// Grade scores a submission. Only the creator of its task may grade it.
func (s *SubmissionService) Grade(ctx context.Context, submissionID string, req models.GradeRequest, callerID string) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	submission, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTask(ctx, submission.TaskID, callerID); err != nil {
		return nil, err
	}

	gradedAt := s.now()
	if err := s.submissions.Grade(ctx, submission.ID, req.Score, req.Feedback, gradedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSubmissionNotFound
		}
		return nil, appErrors.Internal(err, "failed to grade submission")
	}
	s.metrics.RecordSubmission(models.SubmissionGraded)

	score, feedback := req.Score, req.Feedback
	submission.Score = &score
	submission.Feedback = &feedback
	submission.Status = models.SubmissionGraded
	submission.GradedAt = &gradedAt
	return s.reload(ctx, submission), nil
}

// Get returns a submission by id.
func (s *SubmissionService) Get(ctx context.Context, submissionID string) (*models.Submission, error) {
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSubmissionNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch submission")
	}
	return submission, nil
}

// ListForTask pages through the submissions of a task owned by the caller.
func (s *SubmissionService) ListForTask(ctx context.Context, taskID, callerID string, page, size int) ([]models.Submission, *models.Pagination, error) {
	if _, err := s.ownedTask(ctx, taskID, callerID); err != nil {
		return nil, nil, err
	}
	page, size = normalisePage(page, size)
	submissions, total, err := s.submissions.ListByTask(ctx, taskID, page, size)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list submissions")
	}
	return submissions, models.NewPagination(page, size, total), nil
}

// ListForStudent pages through a student's own submissions.
func (s *SubmissionService) ListForStudent(ctx context.Context, studentID string, page, size int) ([]models.Submission, *models.Pagination, error) {
	page, size = normalisePage(page, size)
	submissions, total, err := s.submissions.ListByStudent(ctx, studentID, page, size)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list submissions")
	}
	return submissions, models.NewPagination(page, size, total), nil
}

// ExportGrades renders the grade sheet of a task as CSV or PDF.
func (s *SubmissionService) ExportGrades(ctx context.Context, taskID, callerID, format string) (*export.File, error) {
	parsed, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedExport, fmt.Sprintf("unsupported export format %q", format))
	}

	task, err := s.ownedTask(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListAllByTask(ctx, task.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load submissions")
	}

	file, err := s.renderer.Render(parsed, gradeSheet(task, submissions), task.Title+" grades", "grades-"+task.ID)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, appErrors.ErrUnsupportedExport
		}
		return nil, appErrors.Internal(err, "failed to render grade sheet")
	}
	return file, nil
}

func (s *SubmissionService) task(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTaskNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch task")
	}
	return task, nil
}

func (s *SubmissionService) ownedTask(ctx context.Context, taskID, callerID string) (*models.Task, error) {
	task, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !isOwner(task.CreatorID, callerID) {
		return nil, appErrors.ErrNotTaskOwner
	}
	return task, nil
}

// reload fetches the joined row; the written value is returned if that fails.
func (s *SubmissionService) reload(ctx context.Context, submission *models.Submission) *models.Submission {
	stored, err := s.submissions.FindByID(ctx, submission.ID)
	if err != nil {
		s.logger.Warn("failed to reload submission", zap.String("submission_id", submission.ID), zap.Error(err))
		return submission
	}
	return stored
}

func gradeSheet(task *models.Task, submissions []models.Submission) export.Dataset {
	data := export.Dataset{Headers: gradeSheetHeaders, Rows: make([]map[string]string, 0, len(submissions))}
	maxScore := strconv.Itoa(task.MaxScore)
	for _, sub := range submissions {
		row := map[string]string{
			"Student":      sub.Username,
			"Status":       string(sub.Status),
			"Max Score":    maxScore,
			"Submitted At": sub.SubmittedAt.Format(time.RFC3339),
		}
		if row["Student"] == "" {
			row["Student"] = sub.StudentID
		}
		if sub.Score != nil {
			row["Score"] = strconv.Itoa(*sub.Score)
		}
		if sub.Feedback != nil {
			row["Feedback"] = *sub.Feedback
		}
		if sub.GradedAt != nil {
			row["Graded At"] = sub.GradedAt.Format(time.RFC3339)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}
