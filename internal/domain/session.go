package domain

import "time"

// Session is an authenticated operator of the console together with the
// catalog tokens issued at login.
type Session struct {
	ID           string    `json:"id"`
	Operator     string    `json:"operator"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Lang         string    `json:"lang"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
