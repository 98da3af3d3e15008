// Package repomanager vends repository implementations bound to a database
// handle and runs work inside transactions, hiding which storage backend
// is in use.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/divvyauth/internal/dbx"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	// RunMigrations brings the schema up to date.
	RunMigrations(ctx context.Context) error

	// Conn is the handle for work outside a transaction.
	Conn() dbx.DBTX

	// WithTx runs fn in one transaction, committing when it returns nil.
	WithTx(ctx context.Context, fn dbx.TxFunc) error

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
