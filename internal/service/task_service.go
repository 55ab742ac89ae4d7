package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/learnhub-api/internal/models"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
)

const courseTasksCachePrefix = "tasks:course:"

type taskRepository interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	ListPublishedByCourse(ctx context.Context, courseID string) ([]models.Task, error)
}

type courseRepository interface {
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	FindChapterByID(ctx context.Context, id string) (*models.Chapter, error)
}

// TaskService manages the task lifecycle. Only a task's creator may change it.
type TaskService struct {
	tasks     taskRepository
	courses   courseRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskService constructs a TaskService. cache may be nil.
func NewTaskService(tasks taskRepository, courses courseRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TaskService{tasks: tasks, courses: courses, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create adds a task to a course owned by the caller.
func (s *TaskService) Create(ctx context.Context, req models.TaskRequest, callerID string) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if strings.TrimSpace(req.CourseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required")
	}

	course, err := s.courses.FindCourseByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch course")
	}
	if !isOwner(course.CreatorID, callerID) {
		return nil, appErrors.ErrNotCourseOwner
	}

	if req.ChapterID != nil {
		if err := s.checkChapter(ctx, *req.ChapterID, course.ID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{CourseID: course.ID, CreatorID: callerID}
	applyTaskRequest(task, req)
	task.ChapterID = req.ChapterID

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Internal(err, "failed to create task")
	}
	s.invalidateCourse(ctx, task.CourseID)

	return s.reload(ctx, task)
}

// Update overwrites the editable fields of a task. A changed chapter must
// belong to the task's course; a nil chapter detaches the task.
func (s *TaskService) Update(ctx context.Context, taskID string, req models.TaskRequest, callerID string) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task, err := s.owned(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}

	if req.ChapterID != nil && !sameChapter(req.ChapterID, task.ChapterID) {
		if err := s.checkChapter(ctx, *req.ChapterID, task.CourseID); err != nil {
			return nil, err
		}
	}

	applyTaskRequest(task, req)
	task.ChapterID = req.ChapterID

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTaskNotFound
		}
		return nil, appErrors.Internal(err, "failed to update task")
	}
	s.invalidateCourse(ctx, task.CourseID)

	return s.reload(ctx, task)
}

// Delete removes a task and, through the schema, its submissions.
func (s *TaskService) Delete(ctx context.Context, taskID, callerID string) error {
	task, err := s.owned(ctx, taskID, callerID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrTaskNotFound
		}
		return appErrors.Internal(err, "failed to delete task")
	}
	s.invalidateCourse(ctx, task.CourseID)
	return nil
}

// Get returns a task by id.
func (s *TaskService) Get(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTaskNotFound
		}
		return nil, appErrors.Internal(err, "failed to fetch task")
	}
	return task, nil
}

// ListForOwner pages through the caller's tasks, newest first.
func (s *TaskService) ListForOwner(ctx context.Context, callerID string, courseID *string, published *bool, page, size int) ([]models.Task, *models.Pagination, error) {
	page, size = normalisePage(page, size)
	tasks, total, err := s.tasks.ListByCreator(ctx, models.TaskFilter{
		CreatorID: callerID,
		CourseID:  courseID,
		Published: published,
		Page:      page,
		Size:      size,
	})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list tasks")
	}
	return tasks, models.NewPagination(page, size, total), nil
}

// ListPublishedForCourse returns the published tasks of a course regardless
// of owner. The bool reports a cache hit.
func (s *TaskService) ListPublishedForCourse(ctx context.Context, courseID string) ([]models.Task, bool, error) {
	key := courseTasksCachePrefix + courseID
	var cached []models.Task
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	tasks, err := s.tasks.ListPublishedByCourse(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list course tasks")
	}
	_ = s.cache.Set(ctx, key, tasks, s.cacheTTL)
	return tasks, false, nil
}

// owned loads a task and checks the caller created it.
func (s *TaskService) owned(ctx context.Context, taskID, callerID string) (*models.Task, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !isOwner(task.CreatorID, callerID) {
		return nil, appErrors.ErrNotTaskOwner
	}
	return task, nil
}

func (s *TaskService) checkChapter(ctx context.Context, chapterID, courseID string) error {
	chapter, err := s.courses.FindChapterByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrChapterNotFound
		}
		return appErrors.Internal(err, "failed to fetch chapter")
	}
	if chapter.CourseID != courseID {
		return appErrors.ErrChapterNotInCourse
	}
	return nil
}

func (s *TaskService) reload(ctx context.Context, task *models.Task) (*models.Task, error) {
	stored, err := s.tasks.FindByID(ctx, task.ID)
	if err != nil {
		s.logger.Warn("failed to reload task", zap.String("task_id", task.ID), zap.Error(err))
		return task, nil
	}
	return stored, nil
}

func (s *TaskService) invalidateCourse(ctx context.Context, courseID string) {
	_ = s.cache.Invalidate(ctx, courseTasksCachePrefix+courseID)
}

func applyTaskRequest(task *models.Task, req models.TaskRequest) {
	task.Title = req.Title
	task.Description = req.Description
	task.Content = req.Content
	task.Deadline = req.Deadline
	task.MaxScore = models.DefaultMaxScore
	if req.MaxScore != nil {
		task.MaxScore = *req.MaxScore
	}
	task.Published = req.Published != nil && *req.Published
}

func sameChapter(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
