package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/pkg/database"
)

const (
	submissionColumns = `id, task_id, student_id, content, attachment_urls, score, feedback, status, submitted_at, graded_at, created_at, updated_at`
	submissionSelect  = `SELECT s.id, s.task_id, t.title AS task_title, s.student_id, u.username, s.content, s.attachment_urls, s.score, s.feedback, s.status, s.submitted_at, s.graded_at, s.created_at, s.updated_at FROM task_submissions s JOIN tasks t ON t.id = s.task_id JOIN users u ON u.id = s.student_id`
)

// SubmissionRepository manages task submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID returns a submission by id.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, submissionSelect+` WHERE s.id = $1 LIMIT 1`, id); err != nil {
		if missing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// Upsert stores the student's submission for a task in one statement. An
// existing row keeps its id, score and feedback; content, attachments,
// status and submitted_at are replaced. The stored row is scanned back into s.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *models.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = now
	}
	if s.AttachmentURLs == nil {
		s.AttachmentURLs = []string{}
	}

	const query = `INSERT INTO task_submissions (` + submissionColumns + `) VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6, $7, NULL, $8, $8)
ON CONFLICT (task_id, student_id) DO UPDATE SET content = EXCLUDED.content, attachment_urls = EXCLUDED.attachment_urls, status = EXCLUDED.status, submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at
RETURNING ` + submissionColumns
	if err := r.db.GetContext(ctx, s, query, s.ID, s.TaskID, s.StudentID, s.Content, s.AttachmentURLs, s.Status, s.SubmittedAt, now); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// Grade records the score and feedback and marks the submission graded.
func (r *SubmissionRepository) Grade(ctx context.Context, id string, score int, feedback string, gradedAt time.Time) error {
	const query = `UPDATE task_submissions SET score = $2, feedback = $3, status = $4, graded_at = $5, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, score, feedback, models.SubmissionGraded, gradedAt)
	return execByID(res, err, "grade submission")
}

// ListByTask returns a page of submissions for a task, most recent first.
func (r *SubmissionRepository) ListByTask(ctx context.Context, taskID string, page, size int) ([]models.Submission, int, error) {
	return r.listPage(ctx, "s.task_id", taskID, page, size)
}

// ListByStudent returns a page of a student's submissions, most recent first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.Submission, int, error) {
	return r.listPage(ctx, "s.student_id", studentID, page, size)
}

func (r *SubmissionRepository) listPage(ctx context.Context, column, value string, page, size int) ([]models.Submission, int, error) {
	where := fmt.Sprintf(" WHERE %s = $1", column)
	offset := (page - 1) * size
	listQuery := fmt.Sprintf("%s%s ORDER BY s.submitted_at DESC LIMIT %d OFFSET %d", submissionSelect, where, size, offset)

	submissions := []models.Submission{}
	if err := r.db.SelectContext(ctx, &submissions, listQuery, value); err != nil {
		if database.InvalidText(err) {
			return []models.Submission{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM task_submissions s"+where, value); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// ListAllByTask returns every submission of a task ordered by student name.
func (r *SubmissionRepository) ListAllByTask(ctx context.Context, taskID string) ([]models.Submission, error) {
	submissions := []models.Submission{}
	if err := r.db.SelectContext(ctx, &submissions, submissionSelect+` WHERE s.task_id = $1 ORDER BY u.username ASC`, taskID); err != nil {
		if database.InvalidText(err) {
			return []models.Submission{}, nil
		}
		return nil, fmt.Errorf("list task submissions: %w", err)
	}
	return submissions, nil
}
