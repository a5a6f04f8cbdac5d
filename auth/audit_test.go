package auth_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/auth"
)

type auditTest struct {
	authUser    string
	authAddress string
	authErr     error

	authzUser string
	authzPerm auth.Permission
	authzErr  error

	queryUser string
	queryText string
	queryDur  time.Duration
	queryErr  error
}

func (a *auditTest) Authentication(user, address string, err error) {
	a.authUser, a.authAddress, a.authErr = user, address, err
}

func (a *auditTest) Authorization(user string, p auth.Permission, err error) {
	a.authzUser, a.authzPerm, a.authzErr = user, p, err
}

func (a *auditTest) Query(user, query string, d time.Duration, err error) {
	a.queryUser, a.queryText, a.queryDur, a.queryErr = user, query, d, err
}

func TestAuditAuthentication(t *testing.T) {
	a := auth.NewNativeSingle("user", "password", auth.AllPermissions)
	at := new(auditTest)
	audit := auth.NewAudit(a, at)

	require.NoError(t, audit.Authenticate("user", "password"))
	require.Equal(t, "user", at.authUser)
	require.NoError(t, at.authErr)

	require.Error(t, audit.Authenticate("user", "wrong"))
	require.Error(t, at.authErr)
}

func TestAuditAuthorization(t *testing.T) {
	a := auth.NewNativeSingle("user", "", auth.ReadPerm)
	at := new(auditTest)
	audit := auth.NewAudit(a, at)

	require.NoError(t, audit.Allowed("user", auth.ReadPerm))
	require.Equal(t, "user", at.authzUser)
	require.NoError(t, at.authzErr)

	require.Error(t, audit.Allowed("user", auth.WritePerm))
	require.Error(t, at.authzErr)
	require.True(t, auth.ErrNotAuthorized.Is(at.authzErr))
}

func TestAuditQuery(t *testing.T) {
	a := auth.NewNativeSingle("user", "", auth.AllPermissions)
	at := new(auditTest)
	audit := auth.NewAudit(a, at).(*auth.Audit)

	audit.Query("user", "MATCH (n:Person) RETURN n", 5*time.Millisecond, nil)
	require.Equal(t, "user", at.queryUser)
	require.Equal(t, "MATCH (n:Person) RETURN n", at.queryText)
	require.NoError(t, at.queryErr)
}

func TestAuditLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	l := auth.NewAuditLog(logger)

	l.Authentication("user", "client", nil)
	e := hook.LastEntry()
	require.NotNil(t, e)
	require.Equal(t, logrus.InfoLevel, e.Level)
	m := logrus.Fields{
		"system":  "audit",
		"action":  "authentication",
		"user":    "user",
		"address": "client",
		"success": true,
	}
	require.Equal(t, m, e.Data)

	err := auth.ErrNoPermission.New(auth.ReadPerm)
	l.Authentication("user", "client", err)
	e = hook.LastEntry()
	m["success"] = false
	m["err"] = err
	require.Equal(t, m, e.Data)

	l.Authorization("user", auth.ReadPerm, nil)
	e = hook.LastEntry()
	require.NotNil(t, e)
	m = logrus.Fields{
		"system":     "audit",
		"action":     "authorization",
		"permission": auth.ReadPerm.String(),
		"user":       "user",
		"success":    true,
	}
	require.Equal(t, m, e.Data)

	l.Query("user", "MATCH (n) RETURN n", 808*time.Second, nil)
	e = hook.LastEntry()
	require.NotNil(t, e)
	m = logrus.Fields{
		"system":   "audit",
		"action":   "query",
		"user":     "user",
		"query":    "MATCH (n) RETURN n",
		"duration": 808 * time.Second,
		"success":  true,
	}
	require.Equal(t, m, e.Data)
}
