package auth_test

import (
	"testing"

	"github.com/flowquery-go/flowquery/auth"
)

func TestNoneAuthentication(t *testing.T) {
	a := new(auth.None)

	testAuthentication(t, a, []authenticationTest{
		{"root", "", true},
		{"root", "password", true},
		{"user", "other_password", true},
		{"", "", true},
	})
}

func TestNoneAuthorization(t *testing.T) {
	a := new(auth.None)

	testAuthorization(t, a, []authorizationTest{
		{"user", auth.ReadPerm, true},
		{"root", auth.WritePerm, true},
		{"", auth.AllPermissions, true},
	})
}
