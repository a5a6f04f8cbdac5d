package auth

// None is an Auth method that always succeeds, for local/dev engines
// where no credential checking is needed.
type None struct{}

// Authenticate implements Auth.
func (n *None) Authenticate(user, password string) error { return nil }

// Allowed implements Auth.
func (n *None) Allowed(user string, permission Permission) error { return nil }
