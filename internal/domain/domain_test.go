package domain_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/taskmanager/internal/domain"
)

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.RegisterRequest
		wantMsg string
	}{
		{"ok", domain.RegisterRequest{Name: "A", Email: "A@X.com ", Password: "secret1"}, ""},
		{"missing name", domain.RegisterRequest{Email: "a@x.com", Password: "secret1"}, "Please provide name, email, and password"},
		{"missing password", domain.RegisterRequest{Name: "A", Email: "a@x.com"}, "Please provide name, email, and password"},
		{"bad email", domain.RegisterRequest{Name: "A", Email: "nope", Password: "secret1"}, "Please provide a valid email"},
		{"short password", domain.RegisterRequest{Name: "A", Email: "a@x.com", Password: "12345"}, "Password must be at least 6 characters"},
		{"bad phone", domain.RegisterRequest{Name: "A", Email: "a@x.com", Password: "secret1", Phone: "12"}, "Please provide a valid phone number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			err := tt.req.Validate()
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", tt.req.Email)
				return
			}
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestParsePurpose(t *testing.T) {
	for _, s := range []string{"registration", "login", "password-reset"} {
		p, err := domain.ParsePurpose(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(p))
	}
	_, err := domain.ParsePurpose("signup")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIsValidOTPCode(t *testing.T) {
	assert.True(t, domain.IsValidOTPCode("100000"))
	assert.False(t, domain.IsValidOTPCode("12345"))
	assert.False(t, domain.IsValidOTPCode("12345a"))
	assert.False(t, domain.IsValidOTPCode("1234567"))
}

func TestCreateTaskRequestDefaults(t *testing.T) {
	req := domain.CreateTaskRequest{Title: "  Buy milk  "}
	task, err := req.ToTask(3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), task.UserID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Nil(t, task.DueDate)
}

func TestCreateTaskRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.CreateTaskRequest
		wantMsg string
	}{
		{"missing title", domain.CreateTaskRequest{}, "Please provide a task title"},
		{"blank title", domain.CreateTaskRequest{Title: "   "}, "Please provide a task title"},
		{"bad status", domain.CreateTaskRequest{Title: "x", Status: "done"}, "Status must be one of: pending, in-progress, completed"},
		{"bad priority", domain.CreateTaskRequest{Title: "x", Priority: "urgent"}, "Priority must be one of: low, medium, high"},
		{"bad due date", domain.CreateTaskRequest{Title: "x", DueDate: "tomorrow"}, "Invalid due date format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.ToTask(1)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tt.wantMsg, domain.Message(err))
		})
	}
}

func TestParseDueDate(t *testing.T) {
	for _, s := range []string{"2025-03-01", "2025-03-01T10:00:00Z", "2025-03-01T10:00:00.123+02:00", "2025-03-01T10:00"} {
		_, err := domain.ParseDueDate(s)
		assert.NoError(t, err, s)
	}
	got, err := domain.ParseDueDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestUpdateTaskRequestDueDateStates(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantClear bool
		wantSet   bool
	}{
		{"absent", `{"title":"x"}`, false, false},
		{"null clears", `{"dueDate":null}`, true, false},
		{"empty clears", `{"dueDate":""}`, true, false},
		{"value sets", `{"dueDate":"2030-01-01"}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req domain.UpdateTaskRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			patch, err := req.ToPatch()
			require.NoError(t, err)
			assert.Equal(t, tt.wantClear, patch.ClearDueDate)
			assert.Equal(t, tt.wantSet, patch.DueDate != nil)
		})
	}
}

func TestUpdateTaskRequestRejectsBlankTitle(t *testing.T) {
	var req domain.UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"  "}`), &req))
	_, err := req.ToPatch()
	assert.Equal(t, "Task title cannot be empty", domain.Message(err))
}

func TestTaskPatchApply(t *testing.T) {
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	task := domain.Task{Title: "a", Status: domain.StatusPending, Priority: domain.PriorityLow, DueDate: &due}

	status := domain.StatusCompleted
	patch := domain.TaskPatch{Status: &status, ClearDueDate: true}
	patch.Apply(&task)

	assert.Equal(t, "a", task.Title)
	assert.Equal(t, domain.StatusCompleted, task.Status)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, []string{"status", "dueDate"}, patch.Fields())
}

func TestParseSort(t *testing.T) {
	field, desc, err := domain.ParseSort("dueDate:desc")
	require.NoError(t, err)
	assert.Equal(t, domain.SortDueDate, field)
	assert.True(t, desc)

	field, desc, err = domain.ParseSort("title")
	require.NoError(t, err)
	assert.Equal(t, domain.SortTitle, field)
	assert.False(t, desc)

	_, _, err = domain.ParseSort("password:asc")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTaskFilterValidateClamps(t *testing.T) {
	f := domain.DefaultTaskFilter()
	f.Page, f.Limit = 0, 1000
	require.NoError(t, f.Validate())
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, domain.MaxPageSize, f.Limit)

	f = domain.DefaultTaskFilter()
	f.Page = 3
	require.NoError(t, f.Validate())
	assert.Equal(t, 20, f.Offset())

	f.Page, f.Limit = math.MaxInt, domain.MaxPageSize
	require.NoError(t, f.Validate())
	assert.Equal(t, domain.MaxPage, f.Page)
	assert.GreaterOrEqual(t, f.Offset(), 0)

	f.Status = "archived"
	assert.ErrorIs(t, f.Validate(), domain.ErrValidation)
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, domain.Pages(0, 10))
	assert.Equal(t, 1, domain.Pages(10, 10))
	assert.Equal(t, 2, domain.Pages(11, 10))
	assert.Equal(t, 3, domain.Pages(25, 10))
}

func TestTaskStatsPreSeededAndSums(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	s := domain.NewTaskStats()
	assert.Len(t, s.ByStatus, 3)
	assert.Len(t, s.ByPriority, 3)

	tasks := []domain.Task{
		{Status: domain.StatusPending, Priority: domain.PriorityLow, DueDate: &past},
		{Status: domain.StatusCompleted, Priority: domain.PriorityLow, DueDate: &past},
		{Status: domain.StatusInProgress, Priority: domain.PriorityHigh},
	}
	for i := range tasks {
		s.Add(&tasks[i], now)
	}

	var sum int64
	for _, n := range s.ByStatus {
		sum += n
	}
	assert.Equal(t, s.Total, sum)
	assert.Equal(t, int64(1), s.Overdue)
	assert.Equal(t, int64(0), s.ByPriority[domain.PriorityMedium])
}

func TestErrorMessageAndKind(t *testing.T) {
	err := domain.Errorf(domain.ErrNotFound, "Task not found")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, "Task not found", domain.Message(err))
	assert.Equal(t, "", domain.Message(errors.New("plain")))
}

func TestInternalErrorKeepsCause(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := domain.Internal(cause, "Failed to send email")

	assert.True(t, errors.Is(err, domain.ErrInternal))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Failed to send email", domain.Message(err))
	assert.Contains(t, err.Error(), "connection refused")
}
