package shell

// Identity is the authenticated user as reported by the identity check.
// It is nil until the user resource initializes, and is replaced wholesale
// on re-authorization, never partially mutated.
type Identity struct {
	Username    string `json:"username"`
	IsVerified  bool   `json:"is_verified"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Verified reports whether id is a present, email-verified identity.
func (id *Identity) Verified() bool {
	return id != nil && id.IsVerified
}

// Superuser reports whether id is a verified superuser.
func (id *Identity) Superuser() bool {
	return id != nil && id.IsSuperuser
}
