package models

// ListQuery bounds list endpoints.
type ListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// PlayerProfile combines a player's recorded results with live presence.
type PlayerProfile struct {
	Username string `json:"username"`
	Played   int    `json:"played"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Ranked   int64  `json:"leaderboard_wins"`
	Status   string `json:"status"`
	MatchID  string `json:"match_id,omitempty"`
	Online   bool   `json:"online"`
}
