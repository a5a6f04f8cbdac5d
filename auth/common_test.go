package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/auth"
)

type authenticationTest struct {
	user     string
	password string
	success  bool
}

func testAuthentication(t *testing.T, a auth.Auth, tests []authenticationTest) {
	t.Helper()
	for _, c := range tests {
		err := a.Authenticate(c.user, c.password)
		if c.success {
			require.NoError(t, err)
		} else {
			require.Error(t, err)
		}
	}
}

type authorizationTest struct {
	user       string
	permission auth.Permission
	success    bool
}

func testAuthorization(t *testing.T, a auth.Auth, tests []authorizationTest) {
	t.Helper()
	for _, c := range tests {
		err := a.Allowed(c.user, c.permission)
		if c.success {
			require.NoError(t, err)
		} else {
			require.Error(t, err)
			require.True(t, auth.ErrNotAuthorized.Is(err))
		}
	}
}
