package dto

type ImportRowIssue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportSummary struct {
	Total     int `json:"total"`
	Imported  int `json:"imported"`
	Failed    int `json:"failed"`
	Warnings  int `json:"warnings"`
	Reminders int `json:"reminders"`
}

// ColumnMapping holds zero-based column indexes; -1 means not found.
type ColumnMapping struct {
	Name         int `json:"name"`
	Phone        int `json:"phone"`
	Email        int `json:"email"`
	Status       int `json:"status"`
	Source       int `json:"source"`
	Notes        int `json:"notes"`
	CallbackDate int `json:"callback_date"`
	CallbackTime int `json:"callback_time"`
}

type ImportResultDTO struct {
	Summary  ImportSummary    `json:"summary"`
	Errors   []ImportRowIssue `json:"errors"`
	Warnings []ImportRowIssue `json:"warnings"`
	Columns  ColumnMapping    `json:"columns"`
}
