package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"fieldops/internal/models"
	"fieldops/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `u.user_id::text, u.employee_id, u.name, u.email, u.contact, u.role, u.active, u.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (models.User, error) {
	var user models.User
	dest := []any{&user.UserID, &user.EmployeeID, &user.Name, &user.Email, &user.Contact, &user.Role, &user.Active, &user.Created}
	dest = append(dest, extra...)
	err := row.Scan(dest...)
	return user, err
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Store) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}
	role := input.Role
	if role == "" {
		role = models.RoleEmployee
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users AS u (user_id, employee_id, name, email, contact, role, password_hash, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING `+userColumns,
		uuid.NewString(), input.EmployeeID, input.Name, strings.ToLower(input.Email), input.Contact, role, hash)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, "") {
			return models.User{}, store.ErrDuplicateUser
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) Authenticate(ctx context.Context, identifier, password string) (models.User, error) {
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, u.password_hash
		FROM users u
		WHERE (lower(u.email) = lower($1) OR u.employee_id = $1) AND u.active = TRUE
	`, identifier)
	user, err := scanUser(row, &passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return models.User{}, store.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.user_id::text = $1
	`, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE ($1 = '' OR u.role = $1)
		ORDER BY u.name, u.employee_id
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, input store.ProfileInput) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users AS u
		SET name = $2, contact = $3
		WHERE u.user_id::text = $1
		RETURNING `+userColumns,
		userID, input.Name, input.Contact)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) UpdateUserRole(ctx context.Context, userID, role string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users AS u
		SET role = $2
		WHERE u.user_id::text = $1
		RETURNING `+userColumns,
		userID, role)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) ChangePassword(ctx context.Context, userID, current, next string) error {
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT password_hash FROM users WHERE user_id::text = $1 AND active = TRUE
	`, userID)
	if err := row.Scan(&passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(current)); err != nil {
		return store.ErrInvalidCredentials
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2 WHERE user_id::text = $1
	`, userID, hash)
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, email, tokenHash string, expiresAt time.Time) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE lower(u.email) = lower($1) AND u.active = TRUE
	`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, tokenHash, user.UserID, expiresAt)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) ResetPassword(ctx context.Context, tokenHash, password string) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var userID string
	row := tx.QueryRow(ctx, `
		SELECT user_id::text
		FROM password_resets
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
		FOR UPDATE
	`, tokenHash)
	if err = row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrResetTokenInvalid
		}
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE user_id::text = $1`, userID, hash); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE password_resets SET used_at = NOW() WHERE token_hash = $1`, tokenHash); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
