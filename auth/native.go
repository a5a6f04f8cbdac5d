// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"regexp"
	"strings"

	"gopkg.in/src-d/go-errors.v1"
)

var (
	regNative = regexp.MustCompile(`^\*[0-9A-F]{40}$`)

	// ErrParseUserFile is given when the user file is malformed.
	ErrParseUserFile = errors.NewKind("error parsing user file")
	// ErrUnknownPermission happens when a user permission is not defined.
	ErrUnknownPermission = errors.NewKind("unknown permission, %s")
	// ErrDuplicateUser happens when a user appears more than once.
	ErrDuplicateUser = errors.NewKind("duplicate user, %s")
)

// nativeUser holds credentials and permissions for a user.
type nativeUser struct {
	Name            string
	Password        string
	JSONPermissions []string `json:"Permissions"`
	Permissions     Permission
}

// checkAllowed checks if the user has certain permission.
func (u nativeUser) checkAllowed(p Permission) error {
	if u.Permissions&p == p {
		return nil
	}
	missing := (^u.Permissions) & p
	return ErrNotAuthorized.Wrap(ErrNoPermission.New(missing))
}

// NativePassword generates a mysql_native_password-style digest, kept
// from the teacher as a convenient salted-free comparable hash for the
// flat user file (not used for any wire handshake here).
func NativePassword(password string) string {
	if len(password) == 0 {
		return ""
	}

	hash := sha1.New()
	hash.Write([]byte(password))
	s1 := hash.Sum(nil)

	hash.Reset()
	hash.Write(s1)
	s2 := hash.Sum(nil)

	return fmt.Sprintf("*%s", strings.ToUpper(hex.EncodeToString(s2)))
}

// Native holds users authenticated by a hashed password kept in memory
// or loaded from a JSON file.
type Native struct {
	users map[string]nativeUser
}

// NewNativeSingle creates a Native auth backend with a single user.
func NewNativeSingle(name, password string, perm Permission) *Native {
	users := make(map[string]nativeUser)
	users[name] = nativeUser{
		Name:        name,
		Password:    NativePassword(password),
		Permissions: perm,
	}
	return &Native{users}
}

// NewNativeFile creates a Native auth backend and loads users from a
// JSON file of {Name, Password, Permissions} objects.
func NewNativeFile(file string) (*Native, error) {
	var data []nativeUser

	raw, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, ErrParseUserFile.New(err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, ErrParseUserFile.New(err)
	}

	users := make(map[string]nativeUser)
	for _, u := range data {
		if _, ok := users[u.Name]; ok {
			return nil, ErrParseUserFile.Wrap(ErrDuplicateUser.New(u.Name))
		}

		if !regNative.MatchString(u.Password) {
			u.Password = NativePassword(u.Password)
		}

		if len(u.JSONPermissions) == 0 {
			u.Permissions = DefaultPermissions
		}
		for _, p := range u.JSONPermissions {
			perm, ok := PermissionNames[strings.ToLower(p)]
			if !ok {
				return nil, ErrParseUserFile.Wrap(ErrUnknownPermission.New(p))
			}
			u.Permissions |= perm
		}

		users[u.Name] = u
	}

	return &Native{users}, nil
}

// Authenticate implements Auth.
func (s *Native) Authenticate(user, password string) error {
	u, ok := s.users[user]
	if !ok || u.Password != NativePassword(password) {
		return ErrAuthenticationFailed.New(user)
	}
	return nil
}

// Allowed implements Auth.
func (s *Native) Allowed(user string, permission Permission) error {
	u, ok := s.users[user]
	if !ok {
		return ErrNotAuthorized.Wrap(ErrNoPermission.New(permission))
	}
	return u.checkAllowed(permission)
}
