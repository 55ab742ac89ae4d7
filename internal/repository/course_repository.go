package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// CourseRepository reads courses and chapters for ownership checks.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindCourseByID returns a course by id.
func (r *CourseRepository) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, creator_id FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if missing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindChapterByID returns a chapter by id.
func (r *CourseRepository) FindChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	const query = `SELECT id, title, course_id FROM chapters WHERE id = $1 LIMIT 1`
	var chapter models.Chapter
	if err := r.db.GetContext(ctx, &chapter, query, id); err != nil {
		if missing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find chapter: %w", err)
	}
	return &chapter, nil
}
