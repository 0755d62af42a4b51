package models

// Roles an account can hold. Anything else in the role column of the user
// file is normalized to RoleUser on load.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SecretDisabled is the canonical token stored in the secret column when an
// account has no second factor configured.
const SecretDisabled = "none"

// User is one account from the credential file.
type User struct {
	ID         string `json:"id"`
	Password   string `json:"-"` // stored and compared as-is, never serialize
	TOTPSecret string `json:"-"` // base32 secret or SecretDisabled, never serialize
	Role       string `json:"role"`
}

// SecondFactorEnabled reports whether a TOTP code is required to finish
// logging this account in.
func (u *User) SecondFactorEnabled() bool {
	return u.TOTPSecret != "" && u.TOTPSecret != SecretDisabled
}

// IsAdmin reports whether the account may use the admin surface.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether r is one of the two accepted roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}
