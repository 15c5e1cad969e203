package postgres

import (
	"context"
	"errors"

	"fieldops/internal/models"
	"fieldops/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const campColumns = `c.camp_id::text, c.camp_date::text, c.location, c.status, c.conducted_by, c.notes, c.created_at, c.updated_at`

func scanCamp(row rowScanner) (models.Camp, error) {
	var c models.Camp
	err := row.Scan(&c.CampID, &c.Date, &c.Location, &c.Status, &c.ConductedBy, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCamp(ctx context.Context, camp models.Camp) (models.Camp, error) {
	if camp.Status == "" {
		camp.Status = models.CampPlanned
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO camps AS c (camp_id, camp_date, location, status, conducted_by, notes)
		VALUES ($1, $2::date, $3, $4, $5, $6)
		RETURNING `+campColumns,
		uuid.NewString(), camp.Date, camp.Location, camp.Status, camp.ConductedBy, camp.Notes)
	created, err := scanCamp(row)
	if err != nil {
		return models.Camp{}, err
	}
	created.Assigned = []models.UserRef{}
	return created, nil
}

func (s *Store) GetCamp(ctx context.Context, campID string) (models.Camp, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+campColumns+`
		FROM camps c
		WHERE c.camp_id::text = $1
	`, campID)
	camp, err := scanCamp(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Camp{}, store.ErrCampNotFound
		}
		return models.Camp{}, err
	}

	assigned, err := s.loadAssignments(ctx, []string{camp.CampID})
	if err != nil {
		return models.Camp{}, err
	}
	camp.Assigned = refsOrEmpty(assigned[camp.CampID])
	return camp, nil
}

func (s *Store) ListCamps(ctx context.Context, filter store.CampFilter) ([]models.Camp, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+campColumns+`
		FROM camps c
		WHERE ($1 = '' OR EXISTS (
			SELECT 1 FROM camp_assignments a
			WHERE a.camp_id = c.camp_id AND a.user_id::text = $1
		))
		ORDER BY c.camp_date DESC, c.created_at DESC
	`, filter.AssignedTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	camps := []models.Camp{}
	for rows.Next() {
		camp, err := scanCamp(rows)
		if err != nil {
			return nil, err
		}
		camps = append(camps, camp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	camps = models.FilterCampsByStatus(camps, filter.Status)
	if len(camps) == 0 {
		return camps, nil
	}

	ids := make([]string, 0, len(camps))
	for _, camp := range camps {
		ids = append(ids, camp.CampID)
	}
	assigned, err := s.loadAssignments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range camps {
		camps[i].Assigned = refsOrEmpty(assigned[camps[i].CampID])
	}
	return camps, nil
}

func (s *Store) UpdateCamp(ctx context.Context, camp models.Camp) (models.Camp, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE camps
		SET camp_date = $2::date, location = $3, conducted_by = $4, notes = $5, updated_at = NOW()
		WHERE camp_id::text = $1
	`, camp.CampID, camp.Date, camp.Location, camp.ConductedBy, camp.Notes)
	if err != nil {
		return models.Camp{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Camp{}, store.ErrCampNotFound
	}
	return s.GetCamp(ctx, camp.CampID)
}

func (s *Store) DeleteCamp(ctx context.Context, campID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM camps WHERE camp_id::text = $1`, campID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCampNotFound
	}
	return nil
}

func (s *Store) AssignCamp(ctx context.Context, campID string, userIDs []string) (camp models.Camp, added []models.User, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Camp{}, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked string
	if err = tx.QueryRow(ctx, `
		SELECT camp_id::text FROM camps WHERE camp_id::text = $1 FOR UPDATE
	`, campID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCampNotFound
		}
		return models.Camp{}, nil, err
	}

	wanted := uniqueStrings(userIDs)
	users, err := activeUsers(ctx, tx, wanted)
	if err != nil {
		return models.Camp{}, nil, err
	}
	if len(users) != len(wanted) {
		err = store.ErrUserNotFound
		return models.Camp{}, nil, err
	}

	existing := map[string]bool{}
	rows, err := tx.Query(ctx, `SELECT user_id::text FROM camp_assignments WHERE camp_id::text = $1`, campID)
	if err != nil {
		return models.Camp{}, nil, err
	}
	for rows.Next() {
		var userID string
		if err = rows.Scan(&userID); err != nil {
			rows.Close()
			return models.Camp{}, nil, err
		}
		existing[userID] = true
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return models.Camp{}, nil, err
	}

	if _, err = tx.Exec(ctx, `
		DELETE FROM camp_assignments
		WHERE camp_id::text = $1 AND NOT (user_id::text = ANY($2::text[]))
	`, campID, wanted); err != nil {
		return models.Camp{}, nil, err
	}
	for _, user := range users {
		if existing[user.UserID] {
			continue
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO camp_assignments (camp_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, campID, user.UserID); err != nil {
			return models.Camp{}, nil, err
		}
		added = append(added, user)
	}
	if _, err = tx.Exec(ctx, `UPDATE camps SET updated_at = NOW() WHERE camp_id::text = $1`, campID); err != nil {
		return models.Camp{}, nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Camp{}, nil, err
	}

	camp, err = s.GetCamp(ctx, campID)
	if err != nil {
		return models.Camp{}, nil, err
	}
	return camp, added, nil
}

func (s *Store) UpdateCampStatus(ctx context.Context, campID, status string) (camp models.Camp, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Camp{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current string
	if err = tx.QueryRow(ctx, `
		SELECT status FROM camps WHERE camp_id::text = $1 FOR UPDATE
	`, campID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCampNotFound
		}
		return models.Camp{}, err
	}
	if !store.ValidTransition(current, status) {
		err = store.ErrInvalidTransition
		return models.Camp{}, err
	}
	if _, err = tx.Exec(ctx, `
		UPDATE camps SET status = $2, updated_at = NOW() WHERE camp_id::text = $1
	`, campID, status); err != nil {
		return models.Camp{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Camp{}, err
	}
	return s.GetCamp(ctx, campID)
}

func activeUsers(ctx context.Context, tx pgx.Tx, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := tx.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.user_id::text = ANY($1::text[]) AND u.active = TRUE
		ORDER BY u.name
	`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) loadAssignments(ctx context.Context, campIDs []string) (map[string][]models.UserRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.camp_id::text, u.user_id::text, u.employee_id, u.name, u.email
		FROM camp_assignments a
		JOIN users u ON u.user_id = a.user_id
		WHERE a.camp_id::text = ANY($1::text[])
		ORDER BY u.name
	`, campIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assigned := map[string][]models.UserRef{}
	for rows.Next() {
		var campID string
		var ref models.UserRef
		if err := rows.Scan(&campID, &ref.UserID, &ref.EmployeeID, &ref.Name, &ref.Email); err != nil {
			return nil, err
		}
		assigned[campID] = append(assigned[campID], ref)
	}
	return assigned, rows.Err()
}

func refsOrEmpty(refs []models.UserRef) []models.UserRef {
	if refs == nil {
		return []models.UserRef{}
	}
	return refs
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true
		result = append(result, value)
	}
	return result
}
