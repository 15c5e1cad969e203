package postgres

import (
	"context"
	"errors"

	"fieldops/internal/models"
	"fieldops/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const claimColumns = `cl.claim_id::text, cl.card_id::text, cl.type_of_claim, cl.process_state,
	cl.discussed_amount::float8, cl.paid_amount::float8, cl.pending_amount::float8,
	cl.created_at, cl.updated_at`

const claimScopeJoin = `
		JOIN cards ca ON ca.card_id = cl.card_id
		JOIN customers cu ON cu.customer_id = ca.customer_id`

func scanClaim(row rowScanner) (models.Claim, error) {
	var c models.Claim
	err := row.Scan(&c.ClaimID, &c.CardID, &c.TypeOfClaim, &c.ProcessState,
		&c.DiscussedAmount, &c.PaidAmount, &c.PendingAmount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateClaim(ctx context.Context, scope store.Scope, claim models.Claim) (models.Claim, error) {
	if _, err := s.GetCard(ctx, scope, claim.CardID); err != nil {
		return models.Claim{}, err
	}

	claim.Normalize()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO claims AS cl (claim_id, card_id, type_of_claim, process_state, discussed_amount, paid_amount, pending_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+claimColumns,
		uuid.NewString(), claim.CardID, claim.TypeOfClaim, claim.ProcessState,
		claim.DiscussedAmount, claim.PaidAmount, claim.PendingAmount)
	created, err := scanClaim(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Claim{}, store.ErrCardNotFound
		}
		return models.Claim{}, err
	}
	return created, nil
}

func (s *Store) GetClaim(ctx context.Context, scope store.Scope, claimID string) (models.Claim, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+claimColumns+`
		FROM claims cl`+claimScopeJoin+`
		WHERE cl.claim_id::text = $1 AND ($2 = '' OR cu.created_by::text = $2)
	`, claimID, scope.OwnerID)
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Claim{}, store.ErrClaimNotFound
		}
		return models.Claim{}, err
	}
	return claim, nil
}

func (s *Store) ListClaims(ctx context.Context, scope store.Scope, filter store.ClaimFilter) ([]models.Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+claimColumns+`
		FROM claims cl`+claimScopeJoin+`
		WHERE ($1 = '' OR cu.created_by::text = $1)
		  AND ($2 = '' OR cl.card_id::text = $2)
		  AND ($3 = '' OR cl.process_state = $3)
		ORDER BY cl.created_at DESC
	`, scope.OwnerID, filter.CardID, filter.ProcessState)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []models.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (s *Store) UpdateClaim(ctx context.Context, scope store.Scope, claim models.Claim) (models.Claim, error) {
	claim.Normalize()
	row := s.pool.QueryRow(ctx, `
		UPDATE claims AS cl
		SET type_of_claim = $3, process_state = $4,
		    discussed_amount = $5, paid_amount = $6, pending_amount = $7, updated_at = NOW()
		FROM cards ca
		JOIN customers cu ON cu.customer_id = ca.customer_id
		WHERE ca.card_id = cl.card_id
		  AND cl.claim_id::text = $1 AND ($2 = '' OR cu.created_by::text = $2)
		RETURNING `+claimColumns,
		claim.ClaimID, scope.OwnerID, claim.TypeOfClaim, claim.ProcessState,
		claim.DiscussedAmount, claim.PaidAmount, claim.PendingAmount)
	updated, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Claim{}, store.ErrClaimNotFound
		}
		return models.Claim{}, err
	}
	return updated, nil
}

func (s *Store) DeleteClaim(ctx context.Context, scope store.Scope, claimID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM claims cl
		USING cards ca, customers cu
		WHERE ca.card_id = cl.card_id AND cu.customer_id = ca.customer_id
		  AND cl.claim_id::text = $1 AND ($2 = '' OR cu.created_by::text = $2)
	`, claimID, scope.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrClaimNotFound
	}
	return nil
}
