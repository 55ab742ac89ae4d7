package models

import "time"

// DefaultMaxScore applies when a task is created without a max score.
const DefaultMaxScore = 100

// Task is an assignment published by an institution inside a course.
type Task struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Content     string     `db:"content" json:"content"`
	CourseID    string     `db:"course_id" json:"course_id"`
	CourseTitle string     `db:"course_title" json:"course_title,omitempty"`
	ChapterID   *string    `db:"chapter_id" json:"chapter_id,omitempty"`
	CreatorID   string     `db:"creator_id" json:"creator_id"`
	CreatorName string     `db:"creator_name" json:"creator_name,omitempty"`
	Deadline    *time.Time `db:"deadline" json:"deadline,omitempty"`
	MaxScore    int        `db:"max_score" json:"max_score"`
	Published   bool       `db:"published" json:"published"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// TaskRequest is the payload for creating or updating a task.
type TaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=500"`
	Content     string     `json:"content"`
	CourseID    string     `json:"course_id"`
	ChapterID   *string    `json:"chapter_id"`
	Deadline    *time.Time `json:"deadline"`
	MaxScore    *int       `json:"max_score" validate:"omitempty,min=0"`
	Published   *bool      `json:"published"`
}

// TaskFilter narrows an owner's task listing.
type TaskFilter struct {
	CreatorID string
	CourseID  *string
	Published *bool
	Page      int
	Size      int
}
