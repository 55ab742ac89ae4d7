package models

// Course is the owning container of tasks. Only the fields used for
// ownership checks are loaded.
type Course struct {
	ID        string `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	CreatorID string `db:"creator_id" json:"creator_id"`
}

// Chapter groups tasks inside a course.
type Chapter struct {
	ID       string `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	CourseID string `db:"course_id" json:"course_id"`
}
