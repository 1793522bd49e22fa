package types

// Identity is the authenticated claim attached to a request after token
// verification. It carries just enough to drive authorization decisions.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"is_superuser"`
}
