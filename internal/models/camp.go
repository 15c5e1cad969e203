package models

import "time"

const (
	CampPlanned   = "planned"
	CampOngoing   = "ongoing"
	CampCompleted = "completed"
	CampCancelled = "cancelled"
)

var CampStatuses = []string{CampPlanned, CampOngoing, CampCompleted, CampCancelled}

// CampDateLayout is the wire and storage format of Camp.Date.
const CampDateLayout = "2006-01-02"

type Camp struct {
	CampID      string    `json:"camp_id"`
	Date        string    `json:"date"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	ConductedBy string    `json:"conducted_by"`
	Notes       string    `json:"notes"`
	Assigned    []UserRef `json:"assigned"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c Camp) IsAssigned(userID string) bool {
	for _, ref := range c.Assigned {
		if ref.UserID == userID {
			return true
		}
	}
	return false
}

func ValidCampStatus(status string) bool {
	for _, s := range CampStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func ValidCampDate(value string) bool {
	_, err := time.Parse(CampDateLayout, value)
	return err == nil
}

// FilterCampsByStatus keeps the camps in the given status. An empty status
// keeps everything.
func FilterCampsByStatus(camps []Camp, status string) []Camp {
	if status == "" {
		return camps
	}
	filtered := make([]Camp, 0, len(camps))
	for _, camp := range camps {
		if camp.Status == status {
			filtered = append(filtered, camp)
		}
	}
	return filtered
}
