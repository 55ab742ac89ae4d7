package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/learnhub-api/internal/models"
	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
)

type sentEmail struct {
	to, username, code string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *fakeNotifier) SendVerificationEmail(ctx context.Context, to, username, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{to: to, username: username, code: code})
	return n.err
}

func (n *fakeNotifier) last() sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentEmail{}
	}
	return n.sent[len(n.sent)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeUserRepo is an in-memory account table keyed by id.
type fakeUserRepo struct {
	users      map[string]*models.User
	nextID     int
	listErr    error
	lastFilter *models.UserFilter
	updates    int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		copy := *u
		repo.users[u.ID] = &copy
	}
	return repo
}

func (m *fakeUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range m.users {
		if match(u) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *fakeUserRepo) FindByEmailAndVerificationCode(ctx context.Context, email, code string) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return u.Email == email && u.VerificationCode != nil && *u.VerificationCode == code
	})
}

func (m *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

func (m *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		m.nextID++
		user.ID = fmt.Sprintf("new-user-%d", m.nextID)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	m.updates++
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = &filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, len(users), nil
}

type fakeTaskRepo struct {
	tasks      map[string]*models.Task
	nextID     int
	lastFilter *models.TaskFilter
	listCalls  int
}

func newFakeTaskRepo(tasks ...*models.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[string]*models.Task)}
	for _, t := range tasks {
		copy := *t
		repo.tasks[t.ID] = &copy
	}
	return repo
}

func (m *fakeTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *task
	return &copy, nil
}

func (m *fakeTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		m.nextID++
		task.ID = fmt.Sprintf("task-%d", m.nextID)
	}
	copy := *task
	m.tasks[task.ID] = &copy
	return nil
}

func (m *fakeTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *task
	m.tasks[task.ID] = &copy
	return nil
}

func (m *fakeTaskRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.tasks, id)
	return nil
}

func (m *fakeTaskRepo) ListByCreator(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	m.lastFilter = &filter
	var tasks []models.Task
	for _, t := range m.tasks {
		if t.CreatorID == filter.CreatorID {
			tasks = append(tasks, *t)
		}
	}
	return tasks, len(tasks), nil
}

func (m *fakeTaskRepo) ListPublishedByCourse(ctx context.Context, courseID string) ([]models.Task, error) {
	m.listCalls++
	tasks := []models.Task{}
	for _, t := range m.tasks {
		if t.CourseID == courseID && t.Published {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

type fakeCourseRepo struct {
	courses  map[string]*models.Course
	chapters map[string]*models.Chapter
}

func (m *fakeCourseRepo) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *fakeCourseRepo) FindChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	if c, ok := m.chapters[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

// fakeCacheRepo keeps JSON-encoded values in memory.
type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string][]byte)}
}

func (m *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *fakeCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
		m.deletes = append(m.deletes, k)
	}
	return nil
}

type fakeSubmissionRepo struct {
	submissions map[string]*models.Submission
	nextID      int
	gradeCalls  int
}

func newFakeSubmissionRepo(subs ...*models.Submission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: make(map[string]*models.Submission)}
	for _, s := range subs {
		copy := *s
		repo.submissions[s.ID] = &copy
	}
	return repo
}

func (m *fakeSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if s, ok := m.submissions[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *fakeSubmissionRepo) Upsert(ctx context.Context, s *models.Submission) error {
	for _, existing := range m.submissions {
		if existing.TaskID == s.TaskID && existing.StudentID == s.StudentID {
			existing.Content = s.Content
			existing.AttachmentURLs = s.AttachmentURLs
			existing.Status = s.Status
			existing.SubmittedAt = s.SubmittedAt
			*s = *existing
			return nil
		}
	}
	m.nextID++
	s.ID = fmt.Sprintf("sub-%d", m.nextID)
	copy := *s
	m.submissions[s.ID] = &copy
	return nil
}

func (m *fakeSubmissionRepo) Grade(ctx context.Context, id string, score int, feedback string, gradedAt time.Time) error {
	s, ok := m.submissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.gradeCalls++
	s.Score = &score
	s.Feedback = &feedback
	s.Status = models.SubmissionGraded
	s.GradedAt = &gradedAt
	return nil
}

func (m *fakeSubmissionRepo) filter(match func(*models.Submission) bool) []models.Submission {
	out := []models.Submission{}
	for _, s := range m.submissions {
		if match(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

func (m *fakeSubmissionRepo) ListByTask(ctx context.Context, taskID string, page, size int) ([]models.Submission, int, error) {
	out := m.filter(func(s *models.Submission) bool { return s.TaskID == taskID })
	return out, len(out), nil
}

func (m *fakeSubmissionRepo) ListByStudent(ctx context.Context, studentID string, page, size int) ([]models.Submission, int, error) {
	out := m.filter(func(s *models.Submission) bool { return s.StudentID == studentID })
	return out, len(out), nil
}

func (m *fakeSubmissionRepo) ListAllByTask(ctx context.Context, taskID string) ([]models.Submission, error) {
	out := m.filter(func(s *models.Submission) bool { return s.TaskID == taskID })
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
