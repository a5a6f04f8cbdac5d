package driver

import "net/url"

// UserResolver extracts the user and password a connection should
// authenticate and authorize queries as from a connection DSN, the
// way the teacher's SessionBuilder/ContextBuilder hooks let a caller
// customize how a new connection's sql.Session/sql.Context got built.
// FlowQuery has no per-connection sql.Context of its own to construct
// -- engine.Engine.Query already builds one internally -- so the one
// piece of that customization surface with FlowQuery-side meaning is
// which user a DSN names.
type UserResolver interface {
	Resolve(dsn string) (user, password string, err error)
}

// DefaultUserResolver reads the user and password out of the DSN's
// userinfo, e.g. "flowquery://alice:secret@/mygraph".
type DefaultUserResolver struct{}

// Resolve implements UserResolver.
func (DefaultUserResolver) Resolve(dsn string) (string, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", err
	}
	password, _ := u.User.Password()
	return u.User.Username(), password, nil
}
