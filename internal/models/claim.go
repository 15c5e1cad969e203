package models

import "time"

const (
	ClaimSubmitted = "submitted"
	ClaimInProcess = "in_process"
	ClaimApproved  = "approved"
	ClaimRejected  = "rejected"
	ClaimSettled   = "settled"
)

var ClaimStates = []string{ClaimSubmitted, ClaimInProcess, ClaimApproved, ClaimRejected, ClaimSettled}

type Claim struct {
	ClaimID         string    `json:"claim_id"`
	CardID          string    `json:"card_id"`
	TypeOfClaim     string    `json:"type_of_claim"`
	ProcessState    string    `json:"process_state"`
	DiscussedAmount float64   `json:"discussed_amount"`
	PaidAmount      float64   `json:"paid_amount"`
	PendingAmount   float64   `json:"pending_amount"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c *Claim) Normalize() {
	c.DiscussedAmount = RoundAmount(c.DiscussedAmount)
	c.PaidAmount = RoundAmount(c.PaidAmount)
	c.PendingAmount = PendingAmount(c.DiscussedAmount, c.PaidAmount)
	if c.ProcessState == "" {
		c.ProcessState = ClaimSubmitted
	}
}

func ValidClaimState(state string) bool {
	for _, s := range ClaimStates {
		if s == state {
			return true
		}
	}
	return false
}
