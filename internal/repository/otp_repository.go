package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/taskmanager/internal/domain"
)

type otpRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(pool *pgxpool.Pool) OTPRepository {
	return &otpRepository{pool: pool}
}

const otpCols = `id, email, phone, code, purpose, expires_at, verified, created_at`

func scanOTP(row pgx.Row) (*domain.OTP, error) {
	var (
		o       domain.OTP
		phone   *string
		purpose string
	)
	if err := row.Scan(&o.ID, &o.Email, &phone, &o.Code, &purpose, &o.ExpiresAt, &o.Verified, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Phone = derefString(phone)
	o.Purpose = domain.Purpose(purpose)
	return &o, nil
}

// Upsert relies on the partial unique index otps_outstanding_key so the
// replace of a previous outstanding code is one statement.
func (r *otpRepository) Upsert(ctx context.Context, otp *domain.OTP) (*domain.OTP, error) {
	const q = `
		INSERT INTO otps (email, phone, code, purpose, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		ON CONFLICT (email, purpose) WHERE NOT verified
		DO UPDATE SET
			phone = EXCLUDED.phone,
			code = EXCLUDED.code,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
		RETURNING ` + otpCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	saved, err := scanOTP(r.pool.QueryRow(ctx, q,
		otp.Email, nullString(otp.Phone), otp.Code, string(otp.Purpose), otp.ExpiresAt, otp.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert otp: %w", err)
	}
	return saved, nil
}

func (r *otpRepository) Consume(ctx context.Context, email, phone, code string, purpose domain.Purpose, now time.Time) (*domain.OTP, error) {
	const q = `
		UPDATE otps SET verified = true
		WHERE email = $1
			AND ($2::text = '' OR phone = $2)
			AND code = $3
			AND purpose = $4
			AND NOT verified
			AND expires_at > $5
		RETURNING ` + otpCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	o, err := scanOTP(r.pool.QueryRow(ctx, q, email, phone, code, string(purpose), now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	return o, nil
}

func (r *otpRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM otps WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM otps WHERE expires_at < $1`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	return result.RowsAffected(), nil
}
