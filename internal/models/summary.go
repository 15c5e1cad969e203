package models

type AmountTotals struct {
	Discussed float64 `json:"discussed" db:"discussed"`
	Paid      float64 `json:"paid" db:"paid"`
	Pending   float64 `json:"pending" db:"pending"`
}

type Summary struct {
	Customers     int            `json:"customers"`
	CustomerTotal AmountTotals   `json:"customer_totals"`
	Cards         int            `json:"cards"`
	Claims        map[string]int `json:"claims"`
	ClaimTotal    AmountTotals   `json:"claim_totals"`
	Camps         map[string]int `json:"camps"`
}
