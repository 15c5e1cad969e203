package models

import "time"

type Customer struct {
	CustomerID      string    `json:"customer_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	TypeOfWork      string    `json:"type_of_work"`
	DiscussedAmount float64   `json:"discussed_amount"`
	PaidAmount      float64   `json:"paid_amount"`
	PendingAmount   float64   `json:"pending_amount"`
	ModeOfPayment   string    `json:"mode_of_payment"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Normalize rounds amounts and derives the pending balance.
func (c *Customer) Normalize() {
	c.DiscussedAmount = RoundAmount(c.DiscussedAmount)
	c.PaidAmount = RoundAmount(c.PaidAmount)
	c.PendingAmount = PendingAmount(c.DiscussedAmount, c.PaidAmount)
}

type Card struct {
	CardID         string    `json:"card_id"`
	CustomerID     string    `json:"customer_id"`
	CardNumber     string    `json:"card_number"`
	RegisterNumber string    `json:"register_number"`
	HolderName     string    `json:"holder_name"`
	AgentName      string    `json:"agent_name"`
	AgentMobile    string    `json:"agent_mobile"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
