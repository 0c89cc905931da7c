package model

// Analytics is the admin dashboard summary.
type Analytics struct {
	TotalItems     int             `json:"total_items"`
	LostItems      int             `json:"lost_items"`
	FoundItems     int             `json:"found_items"`
	ActiveItems    int             `json:"active_items"`
	DisabledItems  int             `json:"disabled_items"`
	RecoveredItems int             `json:"recovered_items"`
	SuccessRate    string          `json:"success_rate"`
	Monthly        []MonthStats    `json:"monthly"`
	Categories     []CategoryStats `json:"categories"`
}

// MonthStats counts activity in one calendar month.
type MonthStats struct {
	Month     string `json:"month"`
	Lost      int    `json:"lost"`
	Found     int    `json:"found"`
	Recovered int    `json:"recovered"`
	Total     int    `json:"total"`
}

// CategoryStats counts items per tag.
type CategoryStats struct {
	Name  string `json:"name"`
	Lost  int    `json:"lost"`
	Found int    `json:"found"`
	Total int    `json:"total"`
}

// PublicStats is the summary shown to every visitor.
type PublicStats struct {
	LostItems      int    `json:"lost_items"`
	FoundItems     int    `json:"found_items"`
	RecoveredItems int    `json:"recovered_items"`
	TotalItems     int    `json:"total_items"`
	SuccessRate    string `json:"success_rate"`
}
