package core

// Roles privileged identities
type Roles struct {
	Admins            []string `json:"admins"`
	Moderators        []string `json:"moderators"`
	ReserveCollectors []string `json:"reserve_collectors"`
}

// IsAdmin is admin
func (r *Roles) IsAdmin(userID string) bool {
	return contains(r.Admins, userID)
}

// IsModerator is moderator or admin
func (r *Roles) IsModerator(userID string) bool {
	return contains(r.Moderators, userID) || r.IsAdmin(userID)
}

// IsReserveCollector may sweep the protocol reserve
func (r *Roles) IsReserveCollector(userID string) bool {
	return contains(r.ReserveCollectors, userID)
}

func contains(ids []string, id string) bool {
	if id == "" {
		return false
	}

	for _, a := range ids {
		if a == id {
			return true
		}
	}

	return false
}
