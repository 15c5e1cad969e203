package store

import "fieldops/internal/models"

var transitionMap = map[string][]string{
	models.CampOngoing:   {models.CampPlanned},
	models.CampCompleted: {models.CampOngoing},
	models.CampCancelled: {models.CampPlanned, models.CampOngoing},
}

// ValidTransition reports whether a camp may move from fromStatus to toStatus.
func ValidTransition(fromStatus, toStatus string) bool {
	allowed, ok := transitionMap[toStatus]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
