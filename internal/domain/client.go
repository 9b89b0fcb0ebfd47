package domain

import "time"

// ClientType classifies a client.
type ClientType string

const (
	ClientTypeEntreprise ClientType = "entreprise"
	ClientTypeParticular ClientType = "particular"
)

// IsValid reports whether t is a known client type.
func (t ClientType) IsValid() bool {
	return t == ClientTypeEntreprise || t == ClientTypeParticular
}

// Client is a customer of the freelancer, owned by exactly one user.
type Client struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	Name           string      `json:"name"`
	Type           *ClientType `json:"type"`
	ContactName    *string     `json:"contact_name"`
	ContactEmail   *string     `json:"contact_email"`
	ContactPhone   *string     `json:"contact_phone"`
	BillingAddress *string     `json:"billing_address"`
	Notes          *string     `json:"notes"`
	IsArchived     bool        `json:"is_archived"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ClientFilter narrows a client listing. Archived clients are hidden
// unless IncludeArchived is set.
type ClientFilter struct {
	Query           string
	Type            ClientType
	IncludeArchived bool
	Limit           int
	Offset          int
}

// ClientUpdate is a partial update; nil fields are left untouched.
type ClientUpdate struct {
	Name           *string
	Type           *ClientType
	ContactName    *string
	ContactEmail   *string
	ContactPhone   *string
	BillingAddress *string
	Notes          *string
	IsArchived     *bool
}

// IsEmpty reports whether no field is set.
func (u ClientUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.ContactName == nil &&
		u.ContactEmail == nil && u.ContactPhone == nil &&
		u.BillingAddress == nil && u.Notes == nil && u.IsArchived == nil
}

// Apply copies the set fields onto c.
func (u ClientUpdate) Apply(c *Client) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Type != nil {
		t := *u.Type
		c.Type = &t
	}
	if u.ContactName != nil {
		c.ContactName = u.ContactName
	}
	if u.ContactEmail != nil {
		c.ContactEmail = u.ContactEmail
	}
	if u.ContactPhone != nil {
		c.ContactPhone = u.ContactPhone
	}
	if u.BillingAddress != nil {
		c.BillingAddress = u.BillingAddress
	}
	if u.Notes != nil {
		c.Notes = u.Notes
	}
	if u.IsArchived != nil {
		c.IsArchived = *u.IsArchived
	}
}
