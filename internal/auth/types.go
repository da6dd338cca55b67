package auth

// User mirrors a row of the users table. Password holds whatever the active
// PasswordMode stores: the submitted value, or its bcrypt hash.
type User struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

type PasswordMode string

const (
	PasswordPlaintext PasswordMode = "plaintext"
	PasswordBcrypt    PasswordMode = "bcrypt"
)
