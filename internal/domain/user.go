package domain

import "time"

// DefaultCurrency is applied when registration omits a currency.
const DefaultCurrency = "EUR"

// User is a registered freelancer. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Currency     string    `json:"currency"`
	CompanyName  *string   `json:"company_name"`
	Address      *string   `json:"address"`
	TaxID        *string   `json:"tax_id"`
	LogoURL      *string   `json:"logo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the {id, email} projection attached to guarded requests.
func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Email: u.Email}
}

// Identity is the resolved owner of an access token.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}
