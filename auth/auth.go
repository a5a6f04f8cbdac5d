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

// Package auth provides user authentication and permission checking for
// a FlowQuery engine. There is no wire protocol here -- spec §9 scopes
// FlowQuery as an in-process/embedded engine, not a network server --
// so this package keeps the permission model of the teacher's auth
// package (ReadPerm/WritePerm, a native user-file backend, an audit
// wrapper) and drops everything tied to the MySQL wire protocol
// (mysql.AuthServer, vitess salt/hash handshakes).
package auth

import (
	"strings"

	"gopkg.in/src-d/go-errors.v1"

	"github.com/flowquery-go/flowquery/operation"
)

// Permission holds permissions required by a query or granted to a user.
type Permission int

const (
	// ReadPerm means the query only reads (MATCH/RETURN/WITH/UNWIND/...).
	ReadPerm Permission = 1 << iota
	// WritePerm means the query mutates the graph (CREATE VIRTUAL/DELETE).
	WritePerm
)

var (
	// AllPermissions holds all defined permissions.
	AllPermissions = ReadPerm | WritePerm
	// DefaultPermissions are the permissions granted to a user if not defined.
	DefaultPermissions = ReadPerm

	// PermissionNames translates between human and machine representations.
	PermissionNames = map[string]Permission{
		"read":  ReadPerm,
		"write": WritePerm,
	}

	// ErrNotAuthorized is returned when the user is not allowed to use a
	// permission.
	ErrNotAuthorized = errors.NewKind("not authorized")
	// ErrNoPermission is returned when the user lacks needed permissions.
	ErrNoPermission = errors.NewKind("user does not have permission: %s")
	// ErrAuthenticationFailed is returned by Authenticate on bad credentials.
	ErrAuthenticationFailed = errors.NewKind("authentication failed for user %q")
)

// String returns all the permissions set to on.
func (p Permission) String() string {
	var str []string
	for k, v := range PermissionNames {
		if p&v != 0 {
			str = append(str, k)
		}
	}
	return strings.Join(str, ", ")
}

// Auth authenticates users and checks their permissions before a query runs.
type Auth interface {
	// Authenticate verifies a user's credentials.
	Authenticate(user, password string) error
	// Allowed checks whether user has the given permission. If not, it
	// returns ErrNotAuthorized wrapping ErrNoPermission.
	Allowed(user string, permission Permission) error
}

// writeOperations are the pipeline stages that mutate the graph (spec
// §4.4.4's CREATE VIRTUAL, §4.4's DELETE). Anything else only reads.
func writeOperations(head operation.Operation) bool {
	for o := head; o != nil; o = o.Next() {
		switch o.(type) {
		case *operation.CreateVirtualNode, *operation.CreateVirtualRelationship,
			*operation.DeleteNode, *operation.DeleteRelationship:
			return true
		}
	}
	return false
}

// RequiredPermission inspects an already-built operation chain and
// reports the permission a caller needs to run it: WritePerm if any
// stage mutates the graph, ReadPerm otherwise.
func RequiredPermission(head operation.Operation) Permission {
	if writeOperations(head) {
		return WritePerm
	}
	return ReadPerm
}
