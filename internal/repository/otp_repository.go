package repository

import (
	"context"
	"database/sql"
	"errors"

	"pulse/internal/models"
)

var ErrOTPNotFound = errors.New("otp not found")

type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) error
	// SupersedeActive flips every active code for the user and purpose to
	// superseded, so only the code issued last can ever be verified.
	SupersedeActive(ctx context.Context, userID string, purpose string) error
	// GetLatestByCode returns the newest row matching the exact code,
	// whatever its status. Expiry is checked by the caller.
	GetLatestByCode(ctx context.Context, userID string, code string, purpose string) (*models.OTP, error)
	// GetLatestVerifiedByCode is GetLatestByCode restricted to verified rows;
	// the password-change step only accepts a code its owner already proved.
	GetLatestVerifiedByCode(ctx context.Context, userID string, code string, purpose string) (*models.OTP, error)
	MarkVerified(ctx context.Context, id string) error
	// DeleteAllForPurpose removes every row for the user and purpose,
	// consumed and superseded alike.
	DeleteAllForPurpose(ctx context.Context, userID string, purpose string) error
}

type otpRepository struct {
	db Querier
}

func NewOTPRepository(db Querier) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) error {
	query := `
		INSERT INTO password_reset_otps (id, user_id, email, otp_code, purpose, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return r.db.QueryRowContext(ctx, query, otp.ID, otp.UserID, otp.Email, otp.Code, otp.Purpose, otp.Status, otp.ExpiresAt, otp.CreatedAt).Scan(&otp.CreatedAt)
}

func (r *otpRepository) SupersedeActive(ctx context.Context, userID string, purpose string) error {
	query := `
		UPDATE password_reset_otps
		SET status = $1
		WHERE user_id = $2 AND purpose = $3 AND status = $4
	`

	_, err := r.db.ExecContext(ctx, query, models.OTPStatusSuperseded, userID, purpose, models.OTPStatusActive)
	return err
}

func (r *otpRepository) GetLatestByCode(ctx context.Context, userID string, code string, purpose string) (*models.OTP, error) {
	query := `
		SELECT id, user_id, email, otp_code, purpose, status, expires_at, created_at
		FROM password_reset_otps
		WHERE user_id = $1 AND otp_code = $2 AND purpose = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, code, purpose))
}

func (r *otpRepository) GetLatestVerifiedByCode(ctx context.Context, userID string, code string, purpose string) (*models.OTP, error) {
	query := `
		SELECT id, user_id, email, otp_code, purpose, status, expires_at, created_at
		FROM password_reset_otps
		WHERE user_id = $1 AND otp_code = $2 AND purpose = $3 AND status = $4
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, code, purpose, models.OTPStatusVerified))
}

func (r *otpRepository) scanOne(row *sql.Row) (*models.OTP, error) {
	var o models.OTP
	err := row.Scan(&o.ID, &o.UserID, &o.Email, &o.Code, &o.Purpose, &o.Status, &o.ExpiresAt, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOTPNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *otpRepository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE password_reset_otps
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	res, err := r.db.ExecContext(ctx, query, models.OTPStatusVerified, id, models.OTPStatusActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOTPNotFound
	}
	return nil
}

func (r *otpRepository) DeleteAllForPurpose(ctx context.Context, userID string, purpose string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_otps WHERE user_id = $1 AND purpose = $2`, userID, purpose)
	return err
}
