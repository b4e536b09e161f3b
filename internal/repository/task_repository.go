package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/taskmanager/internal/domain"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskCols = `id, user_id, title, description, status, priority, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t                domain.Task
		status, priority string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	return &t, nil
}

func (r *taskRepository) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	const q = `
		INSERT INTO tasks (user_id, title, description, status, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + taskCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	created, err := scanTask(r.pool.QueryRow(ctx, q,
		t.UserID, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
	))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	const q = `SELECT ` + taskCols + ` FROM tasks WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	t, err := scanTask(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return t, nil
}

func (r *taskRepository) Update(ctx context.Context, owner, id int64, p *domain.TaskPatch) (*domain.Task, error) {
	const q = `
		UPDATE tasks
		SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			status = COALESCE($5, status),
			priority = COALESCE($6, priority),
			due_date = CASE WHEN $7::boolean THEN NULL ELSE COALESCE($8, due_date) END,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var status, priority *string
	if p.Status != nil {
		s := string(*p.Status)
		status = &s
	}
	if p.Priority != nil {
		s := string(*p.Priority)
		priority = &s
	}

	t, err := scanTask(r.pool.QueryRow(ctx, q,
		id, owner, p.Title, p.Description, status, priority, p.ClearDueDate, p.DueDate,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

func (r *taskRepository) Delete(ctx context.Context, owner, id int64) (bool, error) {
	const q = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, owner)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// List runs the page and count queries concurrently on separate pool
// connections.
func (r *taskRepository) List(ctx context.Context, owner int64, f domain.TaskFilter) (*domain.TaskListResult, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	lq := buildTaskListQuery(owner, f)
	res := &domain.TaskListResult{Tasks: []domain.Task{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, lq.countSQL(), lq.args...).Scan(&res.Total); err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sql, args := lq.pageSQL(f)
		rows, err := r.pool.Query(gctx, sql, args...)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("scan task: %w", err)
			}
			res.Tasks = append(res.Tasks, *t)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *taskRepository) Stats(ctx context.Context, owner int64, now time.Time) (*domain.TaskStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stats := domain.NewTaskStats()
	var byStatus [3]int64
	var byPriority [3]int64

	err := r.pool.QueryRow(ctx, taskStatsSQL, owner, now).Scan(
		&stats.Total, &stats.Overdue,
		&byStatus[0], &byStatus[1], &byStatus[2],
		&byPriority[0], &byPriority[1], &byPriority[2],
	)
	if err != nil {
		return nil, fmt.Errorf("count task stats: %w", err)
	}

	for i, status := range statsStatuses {
		stats.ByStatus[status] = byStatus[i]
	}
	for i, priority := range statsPriorities {
		stats.ByPriority[priority] = byPriority[i]
	}
	return stats, nil
}
