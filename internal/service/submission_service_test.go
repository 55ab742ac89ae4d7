package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learnhub-api/internal/models"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
	"github.com/noah-isme/learnhub-api/pkg/export"
)

type submissionFixture struct {
	svc         *SubmissionService
	submissions *fakeSubmissionRepo
	clock       *fakeClock
}

func newSubmissionFixture(subs ...*models.Submission) *submissionFixture {
	tasks := newFakeTaskRepo(
		&models.Task{ID: "t1", Title: "Essay", CourseID: "c1", CreatorID: "inst-1", MaxScore: 20, Published: true},
		&models.Task{ID: "draft", Title: "Draft", CourseID: "c1", CreatorID: "inst-1"},
	)
	students := newFakeUserRepo(&models.User{ID: "stu-1", Username: "alice", Role: models.RoleStudent})
	repo := newFakeSubmissionRepo(subs...)
	clock := newFakeClock()

	svc := NewSubmissionService(repo, tasks, students, nil, NewMetricsService(), nil, nil)
	svc.now = clock.Now
	return &submissionFixture{svc: svc, submissions: repo, clock: clock}
}

func TestSubmitStoresSubmission(t *testing.T) {
	f := newSubmissionFixture()

	sub, err := f.svc.Submit(context.Background(), "t1", models.SubmitRequest{Content: "answer", AttachmentURLs: []string{"https://files/a.pdf"}}, "stu-1")
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionSubmitted, sub.Status)
	assert.Equal(t, f.clock.Now(), sub.SubmittedAt)
	assert.Equal(t, "stu-1", sub.StudentID)
	assert.Len(t, f.submissions.submissions, 1)
}

func TestSubmitPreconditions(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "missing", models.SubmitRequest{}, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrTaskNotFound)

	_, err = f.svc.Submit(ctx, "draft", models.SubmitRequest{}, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrTaskNotPublished)

	_, err = f.svc.Submit(ctx, "t1", models.SubmitRequest{}, "ghost")
	assert.ErrorIs(t, err, appErrors.ErrStudentNotFound)

	assert.Empty(t, f.submissions.submissions)
}

func TestResubmitKeepsGradeAndResetsStatus(t *testing.T) {
	score, feedback := 15, "good"
	graded := existingSubmission()
	graded.Score, graded.Feedback, graded.Status = &score, &feedback, models.SubmissionGraded
	f := newSubmissionFixture(graded)
	f.clock.Advance(time.Hour)

	sub, err := f.svc.Submit(context.Background(), "t1", models.SubmitRequest{Content: "second try"}, "stu-1")
	require.NoError(t, err)

	assert.Equal(t, "sub-existing", sub.ID)
	assert.Equal(t, "second try", sub.Content)
	assert.Equal(t, models.SubmissionSubmitted, sub.Status)
	require.NotNil(t, sub.Score)
	assert.Equal(t, 15, *sub.Score)
	assert.Len(t, f.submissions.submissions, 1)
}

func existingSubmission() *models.Submission {
	return &models.Submission{
		ID:          "sub-existing",
		TaskID:      "t1",
		StudentID:   "stu-1",
		Username:    "alice",
		Content:     "first",
		Status:      models.SubmissionSubmitted,
		SubmittedAt: time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestGradeSubmission(t *testing.T) {
	f := newSubmissionFixture(existingSubmission())

	sub, err := f.svc.Grade(context.Background(), "sub-existing", models.GradeRequest{Score: 18, Feedback: "well argued"}, "inst-1")
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionGraded, sub.Status)
	assert.Equal(t, 18, *sub.Score)
	assert.Equal(t, "well argued", *sub.Feedback)
	assert.Equal(t, f.clock.Now(), *sub.GradedAt)
}

func TestGradeChecks(t *testing.T) {
	f := newSubmissionFixture(existingSubmission())
	ctx := context.Background()

	_, err := f.svc.Grade(ctx, "nope", models.GradeRequest{Score: 1}, "inst-1")
	assert.ErrorIs(t, err, appErrors.ErrSubmissionNotFound)

	_, err = f.svc.Grade(ctx, "sub-existing", models.GradeRequest{Score: 1}, "inst-2")
	assert.ErrorIs(t, err, appErrors.ErrNotTaskOwner)

	_, err = f.svc.Grade(ctx, "sub-existing", models.GradeRequest{Score: -1}, "inst-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Zero(t, f.submissions.gradeCalls)
}

func TestListSubmissions(t *testing.T) {
	f := newSubmissionFixture(existingSubmission())
	ctx := context.Background()

	subs, page, err := f.svc.ListForTask(ctx, "t1", "inst-1", 0, 500)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, 100, page.PageSize)

	_, _, err = f.svc.ListForTask(ctx, "t1", "inst-2", 1, 10)
	assert.ErrorIs(t, err, appErrors.ErrNotTaskOwner)

	_, _, err = f.svc.ListForTask(ctx, "missing", "inst-1", 1, 10)
	assert.ErrorIs(t, err, appErrors.ErrTaskNotFound)

	subs, page, err = f.svc.ListForStudent(ctx, "stu-1", 2, 5)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, 2, page.Page)
}

func TestExportGradesCSV(t *testing.T) {
	score, feedback := 18, "solid"
	graded := existingSubmission()
	graded.Score, graded.Feedback, graded.Status = &score, &feedback, models.SubmissionGraded
	f := newSubmissionFixture(graded)

	file, err := f.svc.ExportGrades(context.Background(), "t1", "inst-1", "")
	require.NoError(t, err)

	assert.Equal(t, "grades-t1.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student,Status,Score,Max Score,Feedback,Submitted At,Graded At", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "alice,GRADED,18,20,solid,"))
}

func TestExportGradesPDF(t *testing.T) {
	f := newSubmissionFixture(existingSubmission())

	file, err := f.svc.ExportGrades(context.Background(), "t1", "inst-1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, export.FormatPDF.ContentType(), file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportGradesRejects(t *testing.T) {
	f := newSubmissionFixture(existingSubmission())
	ctx := context.Background()

	_, err := f.svc.ExportGrades(ctx, "t1", "inst-1", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedExport)

	_, err = f.svc.ExportGrades(ctx, "t1", "inst-2", "csv")
	assert.ErrorIs(t, err, appErrors.ErrNotTaskOwner)
}
