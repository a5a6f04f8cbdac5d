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
	"time"

	"github.com/sirupsen/logrus"
)

// AuditMethod is called to log the audit trail of actions.
type AuditMethod interface {
	// Authentication logs an authentication event.
	Authentication(user, address string, err error)
	// Authorization logs an authorization event.
	Authorization(user string, p Permission, err error)
	// Query logs a query execution.
	Query(user, query string, d time.Duration, err error)
}

// NewAudit creates a wrapped Auth that sends audit trails to method.
func NewAudit(auth Auth, method AuditMethod) Auth {
	return &Audit{auth: auth, method: method}
}

// Audit is an Auth proxy that sends audit trails to an AuditMethod.
type Audit struct {
	auth   Auth
	method AuditMethod
}

// Authenticate implements Auth.
func (a *Audit) Authenticate(user, password string) error {
	err := a.auth.Authenticate(user, password)
	a.method.Authentication(user, "", err)
	return err
}

// Allowed implements Auth.
func (a *Audit) Allowed(user string, permission Permission) error {
	err := a.auth.Allowed(user, permission)
	a.method.Authorization(user, permission, err)
	return err
}

// Query reports a completed query's duration and outcome for auditing.
// Session/engine code calls this directly since, unlike Authenticate/
// Allowed, it isn't part of the Auth interface itself.
func (a *Audit) Query(user, query string, d time.Duration, err error) {
	if inner, ok := a.auth.(*Audit); ok {
		inner.Query(user, query, d, err)
	}
	a.method.Query(user, query, d, err)
}

// NewAuditLog creates an AuditMethod that logs to a logrus.Logger.
func NewAuditLog(l *logrus.Logger) AuditMethod {
	return &AuditLog{log: l.WithField("system", "audit")}
}

const auditLogMessage = "audit trail"

// AuditLog logs audit trails via logrus.
type AuditLog struct {
	log *logrus.Entry
}

// Authentication implements AuditMethod.
func (a *AuditLog) Authentication(user, address string, err error) {
	fields := logrus.Fields{
		"action":  "authentication",
		"user":    user,
		"address": address,
		"success": err == nil,
	}
	if err != nil {
		fields["err"] = err
	}
	a.log.WithFields(fields).Info(auditLogMessage)
}

// Authorization implements AuditMethod.
func (a *AuditLog) Authorization(user string, p Permission, err error) {
	fields := logrus.Fields{
		"action":     "authorization",
		"user":       user,
		"permission": p.String(),
		"success":    err == nil,
	}
	if err != nil {
		fields["err"] = err
	}
	a.log.WithFields(fields).Info(auditLogMessage)
}

// Query implements AuditMethod.
func (a *AuditLog) Query(user, query string, d time.Duration, err error) {
	fields := logrus.Fields{
		"action":   "query",
		"user":     user,
		"query":    query,
		"duration": d,
		"success":  err == nil,
	}
	if err != nil {
		fields["err"] = err
	}
	a.log.WithFields(fields).Info(auditLogMessage)
}
