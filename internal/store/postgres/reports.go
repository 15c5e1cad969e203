package postgres

import (
	"context"

	"fieldops/internal/models"
	"fieldops/internal/store"
)

type totalsRow struct {
	Count int `db:"count"`
	models.AmountTotals
}

type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (s *Store) Summary(ctx context.Context, scope store.Scope) (models.Summary, error) {
	summary := models.Summary{
		Claims: map[string]int{},
		Camps:  map[string]int{},
	}

	var customers totalsRow
	if err := s.reports.GetContext(ctx, &customers, `
		SELECT COUNT(*) AS count,
		       COALESCE(SUM(discussed_amount), 0)::float8 AS discussed,
		       COALESCE(SUM(paid_amount), 0)::float8 AS paid,
		       COALESCE(SUM(pending_amount), 0)::float8 AS pending
		FROM customers
		WHERE ($1 = '' OR created_by::text = $1)
	`, scope.OwnerID); err != nil {
		return models.Summary{}, err
	}
	summary.Customers = customers.Count
	summary.CustomerTotal = customers.AmountTotals

	if err := s.reports.GetContext(ctx, &summary.Cards, `
		SELECT COUNT(*)
		FROM cards ca
		JOIN customers cu ON cu.customer_id = ca.customer_id
		WHERE ($1 = '' OR cu.created_by::text = $1)
	`, scope.OwnerID); err != nil {
		return models.Summary{}, err
	}

	var claims totalsRow
	if err := s.reports.GetContext(ctx, &claims, `
		SELECT COUNT(*) AS count,
		       COALESCE(SUM(cl.discussed_amount), 0)::float8 AS discussed,
		       COALESCE(SUM(cl.paid_amount), 0)::float8 AS paid,
		       COALESCE(SUM(cl.pending_amount), 0)::float8 AS pending
		FROM claims cl
		JOIN cards ca ON ca.card_id = cl.card_id
		JOIN customers cu ON cu.customer_id = ca.customer_id
		WHERE ($1 = '' OR cu.created_by::text = $1)
	`, scope.OwnerID); err != nil {
		return models.Summary{}, err
	}
	summary.ClaimTotal = claims.AmountTotals

	var claimStates []countRow
	if err := s.reports.SelectContext(ctx, &claimStates, `
		SELECT cl.process_state AS key, COUNT(*) AS count
		FROM claims cl
		JOIN cards ca ON ca.card_id = cl.card_id
		JOIN customers cu ON cu.customer_id = ca.customer_id
		WHERE ($1 = '' OR cu.created_by::text = $1)
		GROUP BY cl.process_state
	`, scope.OwnerID); err != nil {
		return models.Summary{}, err
	}
	for _, row := range claimStates {
		summary.Claims[row.Key] = row.Count
	}

	var campStatuses []countRow
	if err := s.reports.SelectContext(ctx, &campStatuses, `
		SELECT c.status AS key, COUNT(*) AS count
		FROM camps c
		WHERE ($1 = '' OR EXISTS (
			SELECT 1 FROM camp_assignments a
			WHERE a.camp_id = c.camp_id AND a.user_id::text = $1
		))
		GROUP BY c.status
	`, scope.OwnerID); err != nil {
		return models.Summary{}, err
	}
	for _, status := range models.CampStatuses {
		summary.Camps[status] = 0
	}
	for _, row := range campStatuses {
		summary.Camps[row.Key] = row.Count
	}
	return summary, nil
}
