package domain

// User is the identity returned by a successful login.
type User struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	CompanyID string  `json:"company_id"`
	UserType  *string `json:"user_type,omitempty"`
}
