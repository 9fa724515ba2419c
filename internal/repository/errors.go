// Package repository implements persistence on MySQL.  Missing rows are
// reported as service.ErrNotFound so handlers can treat the in-memory and
// SQL stores alike; the sentinels below cover the cases only the account
// tables produce.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned by UserRepo.Create when the unique index on
// users.email rejects the insert.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenInvalid is returned when a refresh token is unknown, revoked or
// expired.  Handlers translate it into HTTP 401.
var ErrTokenInvalid = errors.New("refresh token invalid")

const errDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}
