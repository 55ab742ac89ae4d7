package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/pkg/database"
)

const taskSelect = `SELECT t.id, t.title, t.description, t.content, t.course_id, c.title AS course_title, t.chapter_id, t.creator_id, u.username AS creator_name, t.deadline, t.max_score, t.published, t.created_at, t.updated_at FROM tasks t JOIN courses c ON c.id = t.course_id JOIN users u ON u.id = t.creator_id`

// TaskRepository manages tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID returns a task by id.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.GetContext(ctx, &task, taskSelect+` WHERE t.id = $1 LIMIT 1`, id); err != nil {
		if missing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// Create inserts a task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	const query = `INSERT INTO tasks (id, title, description, content, course_id, chapter_id, creator_id, deadline, max_score, published, created_at, updated_at) VALUES (:id, :title, :description, :content, :course_id, :chapter_id, :creator_id, :deadline, :max_score, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update overwrites the editable columns. Course and creator never change.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = :title, description = :description, content = :content, chapter_id = :chapter_id, deadline = :deadline, max_score = :max_score, published = :published, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, task)
	return execByID(res, err, "update task")
}

// Delete removes a task; submissions cascade.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return execByID(res, err, "delete task")
}

// ListByCreator returns the creator's tasks, optionally narrowed by course and
// published flag, newest first.
func (r *TaskRepository) ListByCreator(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	conditions := []string{"t.creator_id = $1"}
	args := []interface{}{filter.CreatorID}

	if filter.CourseID != nil {
		conditions = append(conditions, fmt.Sprintf("t.course_id = $%d", len(args)+1))
		args = append(args, *filter.CourseID)
	}
	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("t.published = $%d", len(args)+1))
		args = append(args, *filter.Published)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	offset := (filter.Page - 1) * filter.Size
	listQuery := fmt.Sprintf("%s%s ORDER BY t.created_at DESC LIMIT %d OFFSET %d", taskSelect, where, filter.Size, offset)

	tasks := []models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, listQuery, args...); err != nil {
		if database.InvalidText(err) {
			return []models.Task{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM tasks t"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// ListPublishedByCourse returns every published task of a course.
func (r *TaskRepository) ListPublishedByCourse(ctx context.Context, courseID string) ([]models.Task, error) {
	tasks := []models.Task{}
	query := taskSelect + ` WHERE t.course_id = $1 AND t.published = TRUE ORDER BY t.created_at DESC`
	if err := r.db.SelectContext(ctx, &tasks, query, courseID); err != nil {
		if database.InvalidText(err) {
			return []models.Task{}, nil
		}
		return nil, fmt.Errorf("list published tasks: %w", err)
	}
	return tasks, nil
}
