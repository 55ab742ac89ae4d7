package models

import (
	"time"

	"github.com/lib/pq"
)

// SubmissionStatus tracks grading progress.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionGraded    SubmissionStatus = "GRADED"
)

// Submission is a student's answer to a task. One row per (task, student).
type Submission struct {
	ID             string           `db:"id" json:"id"`
	TaskID         string           `db:"task_id" json:"task_id"`
	TaskTitle      string           `db:"task_title" json:"task_title,omitempty"`
	StudentID      string           `db:"student_id" json:"user_id"`
	Username       string           `db:"username" json:"username,omitempty"`
	Content        string           `db:"content" json:"content"`
	AttachmentURLs pq.StringArray   `db:"attachment_urls" json:"attachment_urls"`
	Score          *int             `db:"score" json:"score"`
	Feedback       *string          `db:"feedback" json:"feedback"`
	Status         SubmissionStatus `db:"status" json:"status"`
	SubmittedAt    time.Time        `db:"submitted_at" json:"submitted_at"`
	GradedAt       *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmitRequest is the student payload for a submission.
type SubmitRequest struct {
	Content        string   `json:"content"`
	AttachmentURLs []string `json:"attachment_urls" validate:"max=20,dive,max=500"`
}

// GradeRequest is the creator payload for grading a submission.
type GradeRequest struct {
	Score    int    `json:"score" validate:"min=0"`
	Feedback string `json:"feedback"`
}
