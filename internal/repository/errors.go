package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
)

// Sentinel errors returned by the repositories.  They carry an apperr
// kind so handlers can map them without knowing about this package.
var (
	ErrUserNotFound      = apperr.NotFound("user not found")
	ErrSchoolNotFound    = apperr.NotFound("school not found")
	ErrAdvanceNotFound   = apperr.NotFound("advance not found")
	ErrBucketNotFound    = apperr.NotFound("savings bucket not found")
	ErrEmailExists       = apperr.Conflict("email already exists")
	ErrWalletExists      = apperr.Conflict("wallet address already registered")
	ErrOpenAdvanceExists = apperr.Conflict("user already has a pending or active advance")
	ErrStaleState        = apperr.Conflict("record changed concurrently")
)

// MySQL server error numbers the repositories react to.
const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlBadNull         = 1048
	mysqlCheckViolated   = 3819
)

// classify maps driver constraint failures onto apperr kinds and returns
// any other error unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return apperr.Wrap(apperr.KindConflict, "duplicate record", err)
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return apperr.Wrap(apperr.KindReferentialIntegrity, "referenced record missing", err)
		case mysqlCheckViolated, mysqlBadNull:
			return apperr.Wrap(apperr.KindDomainConstraint, "value outside allowed domain", err)
		}
		return err
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return apperr.Wrap(apperr.KindConflict, "duplicate record", err)
		case sqlite3.ErrConstraintForeignKey:
			return apperr.Wrap(apperr.KindReferentialIntegrity, "referenced record missing", err)
		case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
			return apperr.Wrap(apperr.KindDomainConstraint, "value outside allowed domain", err)
		}
	}
	return err
}

// classifyAs behaves like classify but substitutes conflict for a more
// specific sentinel, e.g. ErrEmailExists for a duplicate email.
func classifyAs(err error, conflict error) error {
	err = classify(err)
	if apperr.KindOf(err) == apperr.KindConflict {
		return conflict
	}
	return err
}
