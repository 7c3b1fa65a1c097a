// Package sqlxrepos implements the domain repositories with sqlx.
// Queries are written with `?` placeholders and rebound to the driver's bindvar type.
package sqlxrepos

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps the "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
