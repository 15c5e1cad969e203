package postgres

import (
	"context"
	"errors"

	"fieldops/internal/models"
	"fieldops/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cardColumns = `ca.card_id::text, ca.customer_id::text, ca.card_number, ca.register_number,
	ca.holder_name, ca.agent_name, ca.agent_mobile, ca.created_at, ca.updated_at`

func scanCard(row rowScanner) (models.Card, error) {
	var c models.Card
	err := row.Scan(&c.CardID, &c.CustomerID, &c.CardNumber, &c.RegisterNumber,
		&c.HolderName, &c.AgentName, &c.AgentMobile, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func cardConflict(err error) error {
	switch {
	case isUniqueViolation(err, "cards_customer_id_key"):
		return store.ErrCardExists
	case isUniqueViolation(err, "cards_card_number_key"):
		return store.ErrDuplicateCard
	default:
		return err
	}
}

func (s *Store) CreateCard(ctx context.Context, scope store.Scope, card models.Card) (models.Card, error) {
	if _, err := s.GetCustomer(ctx, scope, card.CustomerID); err != nil {
		return models.Card{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO cards AS ca (card_id, customer_id, card_number, register_number, holder_name, agent_name, agent_mobile)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+cardColumns,
		uuid.NewString(), card.CustomerID, card.CardNumber, card.RegisterNumber,
		card.HolderName, card.AgentName, card.AgentMobile)
	created, err := scanCard(row)
	if err != nil {
		return models.Card{}, cardConflict(err)
	}
	return created, nil
}

func (s *Store) GetCard(ctx context.Context, scope store.Scope, cardID string) (models.Card, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+cardColumns+`
		FROM cards ca
		JOIN customers cu ON cu.customer_id = ca.customer_id
		WHERE ca.card_id::text = $1 AND ($2 = '' OR cu.created_by::text = $2)
	`, cardID, scope.OwnerID)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Card{}, store.ErrCardNotFound
		}
		return models.Card{}, err
	}
	return card, nil
}

func (s *Store) ListCards(ctx context.Context, scope store.Scope, customerID string) ([]models.Card, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+cardColumns+`
		FROM cards ca
		JOIN customers cu ON cu.customer_id = ca.customer_id
		WHERE ($1 = '' OR cu.created_by::text = $1)
		  AND ($2 = '' OR ca.customer_id::text = $2)
		ORDER BY ca.created_at DESC
	`, scope.OwnerID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (s *Store) UpdateCard(ctx context.Context, scope store.Scope, card models.Card) (models.Card, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE cards AS ca
		SET card_number = $3, register_number = $4, holder_name = $5,
		    agent_name = $6, agent_mobile = $7, updated_at = NOW()
		FROM customers cu
		WHERE cu.customer_id = ca.customer_id
		  AND ca.card_id::text = $1 AND ($2 = '' OR cu.created_by::text = $2)
		RETURNING `+cardColumns,
		card.CardID, scope.OwnerID, card.CardNumber, card.RegisterNumber,
		card.HolderName, card.AgentName, card.AgentMobile)
	updated, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Card{}, store.ErrCardNotFound
		}
		return models.Card{}, cardConflict(err)
	}
	return updated, nil
}

func (s *Store) DeleteCard(ctx context.Context, scope store.Scope, cardID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM cards ca
		USING customers cu
		WHERE cu.customer_id = ca.customer_id
		  AND ca.card_id::text = $1 AND ($2 = '' OR cu.created_by::text = $2)
	`, cardID, scope.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCardNotFound
	}
	return nil
}
