package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

var (
	TaskStatuses   = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}
	TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}
)

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (p TaskPriority) Valid() bool {
	for _, v := range TaskPriorities {
		if p == v {
			return true
		}
	}
	return false
}

const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortDueDate   = "dueDate"
	SortTitle     = "title"
	SortStatus    = "status"
	SortPriority  = "priority"

	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (Page-1)*Limit within int for any accepted limit.
	MaxPage = math.MaxInt / MaxPageSize
)

var sortFields = map[string]bool{
	SortCreatedAt: true,
	SortUpdatedAt: true,
	SortDueDate:   true,
	SortTitle:     true,
	SortStatus:    true,
	SortPriority:  true,
}

type Task struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Overdue reports whether the task is past due and not yet completed.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}

type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	DueDate     string       `json:"dueDate,omitempty"`
}

// ToTask validates the request and returns the task to persist for owner,
// with defaults applied.
func (r *CreateTaskRequest) ToTask(owner int64) (*Task, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil, Errorf(ErrValidation, "Please provide a task title")
	}

	t := &Task{
		UserID:      owner,
		Title:       title,
		Description: strings.TrimSpace(r.Description),
		Status:      StatusPending,
		Priority:    PriorityMedium,
	}

	if r.Status != "" {
		if !r.Status.Valid() {
			return nil, errInvalidStatus()
		}
		t.Status = r.Status
	}
	if r.Priority != "" {
		if !r.Priority.Valid() {
			return nil, errInvalidPriority()
		}
		t.Priority = r.Priority
	}
	if r.DueDate != "" {
		due, err := ParseDueDate(r.DueDate)
		if err != nil {
			return nil, err
		}
		t.DueDate = &due
	}

	return t, nil
}

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type UpdateTaskRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *TaskStatus    `json:"status,omitempty"`
	Priority    *TaskPriority  `json:"priority,omitempty"`
	DueDate     OptionalString `json:"dueDate"`
}

// TaskPatch is a validated partial update. Nil fields are left untouched;
// ClearDueDate and DueDate are mutually exclusive.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	Priority     *TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

func (r *UpdateTaskRequest) ToPatch() (*TaskPatch, error) {
	p := &TaskPatch{}

	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		if title == "" {
			return nil, Errorf(ErrValidation, "Task title cannot be empty")
		}
		p.Title = &title
	}
	if r.Description != nil {
		desc := strings.TrimSpace(*r.Description)
		p.Description = &desc
	}
	if r.Status != nil {
		if !r.Status.Valid() {
			return nil, errInvalidStatus()
		}
		p.Status = r.Status
	}
	if r.Priority != nil {
		if !r.Priority.Valid() {
			return nil, errInvalidPriority()
		}
		p.Priority = r.Priority
	}
	if r.DueDate.Set {
		if r.DueDate.Value == nil || strings.TrimSpace(*r.DueDate.Value) == "" {
			p.ClearDueDate = true
		} else {
			due, err := ParseDueDate(*r.DueDate.Value)
			if err != nil {
				return nil, err
			}
			p.DueDate = &due
		}
	}

	return p, nil
}

// Apply merges the patch into t. It does not touch UpdatedAt.
func (p *TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
}

// Fields lists the JSON names of the fields the patch changes.
func (p *TaskPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.DueDate != nil || p.ClearDueDate {
		fields = append(fields, "dueDate")
	}
	return fields
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate accepts RFC 3339 timestamps, zone-less timestamps and plain
// dates. Zone-less input is taken as UTC.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, Errorf(ErrValidation, "Invalid due date format")
}

func errInvalidStatus() error {
	return Errorf(ErrValidation, "Status must be one of: pending, in-progress, completed")
}

func errInvalidPriority() error {
	return Errorf(ErrValidation, "Priority must be one of: low, medium, high")
}

type TaskFilter struct {
	Status    TaskStatus
	Priority  TaskPriority
	Search    string
	SortField string
	SortDesc  bool
	Page      int
	Limit     int
}

// DefaultTaskFilter lists newest first, ten per page.
func DefaultTaskFilter() TaskFilter {
	return TaskFilter{
		SortField: SortCreatedAt,
		SortDesc:  true,
		Page:      1,
		Limit:     DefaultPageSize,
	}
}

func (f *TaskFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return errInvalidStatus()
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return errInvalidPriority()
	}
	if !sortFields[f.SortField] {
		return Errorf(ErrValidation, "Cannot sort by %q", f.SortField)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return nil
}

func (f *TaskFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ParseSort reads "field" or "field:asc|desc". A field without direction
// sorts ascending.
func ParseSort(s string) (field string, desc bool, err error) {
	field, dir, _ := strings.Cut(strings.TrimSpace(s), ":")
	if !sortFields[field] {
		return "", false, Errorf(ErrValidation, "Cannot sort by %q", field)
	}
	return field, strings.EqualFold(dir, "desc"), nil
}

// Pages is ceil(total/limit).
func Pages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

type TaskStats struct {
	Total      int64                  `json:"total"`
	ByStatus   map[TaskStatus]int64   `json:"byStatus"`
	ByPriority map[TaskPriority]int64 `json:"byPriority"`
	Overdue    int64                  `json:"overdue"`
}

// NewTaskStats returns stats with every status and priority bucket at zero.
func NewTaskStats() *TaskStats {
	s := &TaskStats{
		ByStatus:   make(map[TaskStatus]int64, len(TaskStatuses)),
		ByPriority: make(map[TaskPriority]int64, len(TaskPriorities)),
	}
	for _, st := range TaskStatuses {
		s.ByStatus[st] = 0
	}
	for _, p := range TaskPriorities {
		s.ByPriority[p] = 0
	}
	return s
}

func (s *TaskStats) Add(t *Task, now time.Time) {
	s.Total++
	s.ByStatus[t.Status]++
	s.ByPriority[t.Priority]++
	if t.Overdue(now) {
		s.Overdue++
	}
}

type TaskListResult struct {
	Tasks []Task
	Total int64
}
