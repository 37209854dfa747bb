package repository

import (
	"context"
	"time"

	"passport/internal/logger"
	"passport/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, username, full_name, email, password_hash, role,
	reset_code_hash, reset_code_requested_at, reset_attempts,
	reset_token, reset_token_requested_at,
	created_at, updated_at
`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.Role,
		&u.ResetCodeHash, &u.ResetCodeRequestedAt, &u.ResetAttempts,
		&u.ResetToken, &u.ResetTokenRequestedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, full_name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, lower(trim($3)), $4, $5, NOW(), NOW())
		RETURNING id
	`, user.Username, user.FullName, user.Email, user.PasswordHash, user.Role).Scan(&user.ID)
	if err != nil {
		logger.Log.Error("Ошибка создания пользователя (repo)", zap.Error(err))
	}
	return err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower(trim($1))
		LIMIT 1
	`, email)
	return scanUser(row)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *UserRepository) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower(trim($1)))`, email,
	).Scan(&exists)
	return exists, err
}

// SetResetCode записывает хеш кода восстановления и одновременно сбрасывает
// счётчик попыток и незакрытый токен. Один UPDATE — переход атомарный.
func (r *UserRepository) SetResetCode(ctx context.Context, userID int, codeHash string, requestedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET reset_code_hash = $1,
		    reset_code_requested_at = $2,
		    reset_attempts = 0,
		    reset_token = NULL,
		    reset_token_requested_at = NULL,
		    updated_at = NOW()
		WHERE id = $3
	`, codeHash, requestedAt, userID)
	if err != nil {
		logger.Log.Error("Ошибка записи кода восстановления (repo)", zap.Error(err), zap.Int("user_id", userID))
	}
	return err
}

// IncrementResetAttempts атомарно увеличивает счётчик неудачных попыток
// и возвращает новое значение. Инкремент выполняется на стороне БД,
// чтобы параллельные попытки не теряли друг друга.
func (r *UserRepository) IncrementResetAttempts(ctx context.Context, userID int) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET reset_attempts = reset_attempts + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING reset_attempts
	`, userID).Scan(&attempts)
	return attempts, err
}

// IssueResetToken сохраняет токен и в том же UPDATE очищает код:
// нет окна, где код уже снят, а токен ещё не выдан.
func (r *UserRepository) IssueResetToken(ctx context.Context, userID int, token string, requestedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET reset_token = $1,
		    reset_token_requested_at = $2,
		    reset_code_hash = NULL,
		    reset_code_requested_at = NULL,
		    updated_at = NOW()
		WHERE id = $3
	`, token, requestedAt, userID)
	if err != nil {
		logger.Log.Error("Ошибка записи токена восстановления (repo)", zap.Error(err), zap.Int("user_id", userID))
	}
	return err
}

// CommitPassword устанавливает новый хеш пароля и закрывает токен восстановления.
func (r *UserRepository) CommitPassword(ctx context.Context, userID int, passwordHash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $1,
		    reset_token = NULL,
		    reset_token_requested_at = NULL,
		    updated_at = NOW()
		WHERE id = $2
	`, passwordHash, userID)
	if err != nil {
		logger.Log.Error("Ошибка фиксации нового пароля (repo)", zap.Error(err), zap.Int("user_id", userID))
	}
	return err
}

func (r *UserRepository) UpdateUserPassword(ctx context.Context, userID int, passwordHash string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID,
	)
	return err
}
