// Package memory implements the repository interfaces in process. It keeps
// the same guarantees as the Postgres stores (unique email, one outstanding
// OTP per email and purpose, single consumption) under one mutex, and backs
// STORE_DRIVER=memory and the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/internal/repository"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64

	users map[int64]*domain.User
	otps  map[int64]*domain.OTP
	tasks map[int64]*domain.Task
}

func NewStore() *Store {
	return &Store{
		now:   time.Now,
		users: make(map[int64]*domain.User),
		otps:  make(map[int64]*domain.OTP),
		tasks: make(map[int64]*domain.Task),
	}
}

// SetClock replaces the time source used for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Users() repository.UserRepository { return userStore{s} }
func (s *Store) OTPs() repository.OTPRepository { return otpStore{s} }
func (s *Store) Tasks() repository.TaskRepository { return taskStore{s} }

// OTPCount reports how many OTP records are stored, verified or not.
func (s *Store) OTPCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.otps)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, in *domain.User) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if existing.Email == in.Email {
			return nil, repository.ErrDuplicateEmail
		}
	}

	now := u.s.now()
	user := *in
	user.ID = u.s.id()
	user.CreatedAt = now
	user.UpdatedAt = now
	u.s.users[user.ID] = &user

	out := user
	return &out, nil
}

func (u userStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if existing.Email == email {
			out := *existing
			return &out, nil
		}
	}
	return nil, nil
}

func (u userStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	existing, ok := u.s.users[id]
	if !ok {
		return nil, nil
	}
	out := *existing
	return &out, nil
}

func (u userStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	existing, ok := u.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	existing.PasswordHash = passwordHash
	existing.UpdatedAt = u.s.now()
	return nil
}

type otpStore struct{ s *Store }

func (o otpStore) Upsert(_ context.Context, in *domain.OTP) (*domain.OTP, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	for _, existing := range o.s.otps {
		if existing.Email == in.Email && existing.Purpose == in.Purpose && !existing.Verified {
			existing.Phone = in.Phone
			existing.Code = in.Code
			existing.ExpiresAt = in.ExpiresAt
			existing.CreatedAt = in.CreatedAt
			out := *existing
			return &out, nil
		}
	}

	rec := *in
	rec.ID = o.s.id()
	rec.Verified = false
	o.s.otps[rec.ID] = &rec

	out := rec
	return &out, nil
}

func (o otpStore) Consume(_ context.Context, email, phone, code string, purpose domain.Purpose, now time.Time) (*domain.OTP, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	for _, rec := range o.s.otps {
		if rec.Email != email || rec.Code != code || rec.Purpose != purpose || rec.Verified {
			continue
		}
		if phone != "" && rec.Phone != phone {
			continue
		}
		if !rec.ExpiresAt.After(now) {
			continue
		}
		rec.Verified = true
		out := *rec
		return &out, nil
	}
	return nil, nil
}

func (o otpStore) Delete(_ context.Context, id int64) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	delete(o.s.otps, id)
	return nil
}

func (o otpStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	var n int64
	for id, rec := range o.s.otps {
		if rec.ExpiresAt.Before(before) {
			delete(o.s.otps, id)
			n++
		}
	}
	return n, nil
}

type taskStore struct{ s *Store }

func (t taskStore) Create(_ context.Context, in *domain.Task) (*domain.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	now := t.s.now()
	task := *in
	task.ID = t.s.id()
	task.CreatedAt = now
	task.UpdatedAt = now
	t.s.tasks[task.ID] = &task

	return copyTask(&task), nil
}

func (t taskStore) FindByID(_ context.Context, id int64) (*domain.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	task, ok := t.s.tasks[id]
	if !ok {
		return nil, nil
	}
	return copyTask(task), nil
}

func (t taskStore) Update(_ context.Context, owner, id int64, p *domain.TaskPatch) (*domain.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	task, ok := t.s.tasks[id]
	if !ok || task.UserID != owner {
		return nil, nil
	}
	p.Apply(task)
	task.UpdatedAt = t.s.now()
	return copyTask(task), nil
}

func (t taskStore) Delete(_ context.Context, owner, id int64) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	task, ok := t.s.tasks[id]
	if !ok || task.UserID != owner {
		return false, nil
	}
	delete(t.s.tasks, id)
	return true, nil
}

func (t taskStore) List(_ context.Context, owner int64, f domain.TaskFilter) (*domain.TaskListResult, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []*domain.Task
	for _, task := range t.s.tasks {
		if task.UserID != owner {
			continue
		}
		if f.Status != "" && task.Status != f.Status {
			continue
		}
		if f.Priority != "" && task.Priority != f.Priority {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) {
			continue
		}
		matched = append(matched, task)
	}

	sort.Slice(matched, func(i, j int) bool {
		return lessTask(matched[i], matched[j], f.SortField, f.SortDesc)
	})

	res := &domain.TaskListResult{Tasks: []domain.Task{}, Total: int64(len(matched))}
	start := f.Offset()
	if start < 0 || start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	for _, task := range matched[start:end] {
		res.Tasks = append(res.Tasks, *copyTask(task))
	}
	return res, nil
}

func (t taskStore) Stats(_ context.Context, owner int64, now time.Time) (*domain.TaskStats, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	stats := domain.NewTaskStats()
	for _, task := range t.s.tasks {
		if task.UserID == owner {
			stats.Add(task, now)
		}
	}
	return stats, nil
}

// lessTask orders like the SQL listing: the sort column in the requested
// direction with missing due dates last, then id in the same direction.
func lessTask(a, b *domain.Task, field string, desc bool) bool {
	cmp := compareField(a, b, field)
	if cmp == 0 {
		cmp = compareInt(a.ID, b.ID)
		if desc {
			cmp = -cmp
		}
		return cmp < 0
	}
	if field == domain.SortDueDate && (a.DueDate == nil || b.DueDate == nil) {
		return b.DueDate == nil
	}
	if desc {
		cmp = -cmp
	}
	return cmp < 0
}

func compareField(a, b *domain.Task, field string) int {
	switch field {
	case domain.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case domain.SortDueDate:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	case domain.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case domain.SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case domain.SortPriority:
		return strings.Compare(string(a.Priority), string(b.Priority))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func copyTask(t *domain.Task) *domain.Task {
	out := *t
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	return &out
}
