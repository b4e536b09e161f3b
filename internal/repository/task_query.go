package repository

import (
	"fmt"
	"strings"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/internal/utils"
)

var taskSortColumns = map[string]string{
	domain.SortCreatedAt: "created_at",
	domain.SortUpdatedAt: "updated_at",
	domain.SortDueDate:   "due_date",
	domain.SortTitle:     "title",
	domain.SortStatus:    "status",
	domain.SortPriority:  "priority",
}

var (
	statsStatuses   = [3]domain.TaskStatus{domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted}
	statsPriorities = [3]domain.TaskPriority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh}
)

// taskStatsSQL counts every stats bucket in one statement so they all come
// from the same snapshot. Bucket columns follow statsStatuses and
// statsPriorities.
const taskStatsSQL = `
	SELECT count(*),
		count(*) FILTER (WHERE due_date < $2 AND status <> 'completed'),
		count(*) FILTER (WHERE status = 'pending'),
		count(*) FILTER (WHERE status = 'in-progress'),
		count(*) FILTER (WHERE status = 'completed'),
		count(*) FILTER (WHERE priority = 'low'),
		count(*) FILTER (WHERE priority = 'medium'),
		count(*) FILTER (WHERE priority = 'high')
	FROM tasks
	WHERE user_id = $1`

// taskListQuery is the owner-scoped WHERE clause shared by the page and
// count queries of a task listing.
type taskListQuery struct {
	where string
	args  []any
}

func buildTaskListQuery(owner int64, f domain.TaskFilter) taskListQuery {
	conds := []string{"user_id = $1"}
	args := []any{owner}

	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, string(f.Priority))
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+utils.EscapeLike(search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, n, n))
	}

	return taskListQuery{where: strings.Join(conds, " AND "), args: args}
}

func (q taskListQuery) countSQL() string {
	return `SELECT count(*) FROM tasks WHERE ` + q.where
}

// pageSQL returns the page query and its args. Sort column and direction
// come from a whitelist, never from the request text.
func (q taskListQuery) pageSQL(f domain.TaskFilter) (string, []any) {
	col, ok := taskSortColumns[f.SortField]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	args := append(append([]any{}, q.args...), f.Limit, f.Offset())
	sql := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s %s NULLS LAST, id %s LIMIT $%d OFFSET $%d`,
		taskCols, q.where, col, dir, dir, len(args)-1, len(args))
	return sql, args
}
