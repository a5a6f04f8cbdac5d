package auth_test

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-errors.v1"

	"github.com/flowquery-go/flowquery/auth"
)

const (
	baseConfig = `
[
	{
		"name": "root",
		"password": "*9E128DA0C64A6FCCCDCFBDD0FC0A2C967C6DB36F",
		"permissions": ["read", "write"]
	},
	{
		"name": "user",
		"password": "password",
		"permissions": ["read"]
	},
	{
		"name": "no_password"
	},
	{
		"name": "empty_password",
		"password": ""
	},
	{
		"name": "no_permissions",
		"permissions": []
	}
]`
	duplicateUser = `
[
	{ "name": "user" },
	{ "name": "user" }
]`
	badPermission = `
[
	{ "permissions": ["read", "write", "admin"] }
]`
	badJSON = "I,am{not}JSON"
)

func writeConfig(config string) (string, error) {
	tmp, err := ioutil.TempFile("", "native-config")
	if err != nil {
		return "", err
	}
	if _, err := tmp.WriteString(config); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func TestNativeAuthenticationSingle(t *testing.T) {
	a := auth.NewNativeSingle("user", "password", auth.AllPermissions)

	testAuthentication(t, a, []authenticationTest{
		{"root", "", false},
		{"root", "password", false},
		{"user", "password", true},
		{"user", "other_password", false},
		{"user", "", false},
		{"", "", false},
	})
}

func TestNativeAuthentication(t *testing.T) {
	conf, err := writeConfig(baseConfig)
	require.NoError(t, err)
	defer os.Remove(conf)

	a, err := auth.NewNativeFile(conf)
	require.NoError(t, err)

	testAuthentication(t, a, []authenticationTest{
		{"root", "", false},
		{"root", "mysql_password", true},
		{"user", "password", true},
		{"user", "other_password", false},
		{"no_password", "", true},
		{"no_password", "password", false},
		{"empty_password", "", true},
		{"empty_password", "password", false},
		{"nonexistent", "", false},
	})
}

func TestNativeAuthorizationSingleAll(t *testing.T) {
	a := auth.NewNativeSingle("user", "password", auth.AllPermissions)

	testAuthorization(t, a, []authorizationTest{
		{"user", auth.ReadPerm, true},
		{"root", auth.ReadPerm, false},
		{"", auth.ReadPerm, false},
		{"user", auth.WritePerm, true},
		{"root", auth.WritePerm, false},
	})
}

func TestNativeAuthorizationSingleRead(t *testing.T) {
	a := auth.NewNativeSingle("user", "password", auth.ReadPerm)

	testAuthorization(t, a, []authorizationTest{
		{"user", auth.ReadPerm, true},
		{"user", auth.WritePerm, false},
		{"root", auth.ReadPerm, false},
	})
}

func TestNativeAuthorization(t *testing.T) {
	conf, err := writeConfig(baseConfig)
	require.NoError(t, err)
	defer os.Remove(conf)

	a, err := auth.NewNativeFile(conf)
	require.NoError(t, err)

	testAuthorization(t, a, []authorizationTest{
		{"", auth.ReadPerm, false},
		{"user", auth.ReadPerm, true},
		{"no_password", auth.ReadPerm, true},
		{"no_permissions", auth.ReadPerm, true},
		{"root", auth.ReadPerm, true},

		{"", auth.WritePerm, false},
		{"user", auth.WritePerm, false},
		{"no_password", auth.WritePerm, false},
		{"no_permissions", auth.WritePerm, false},
		{"root", auth.WritePerm, true},
	})
}

func TestNativeErrors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		err    *errors.Kind
	}{
		{"duplicate_user", duplicateUser, auth.ErrDuplicateUser},
		{"bad_permission", badPermission, auth.ErrUnknownPermission},
		{"malformed", badJSON, auth.ErrParseUserFile},
	}

	for _, c := range tests {
		t.Run(c.name, func(t *testing.T) {
			conf, err := writeConfig(c.config)
			require.NoError(t, err)
			defer os.Remove(conf)

			_, err = auth.NewNativeFile(conf)
			require.Error(t, err)
			require.True(t, c.err.Is(err))
		})
	}
}
