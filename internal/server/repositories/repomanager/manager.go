package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/donationhub/internal/dbx"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/donations"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/lookups"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/requests"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on the pool and inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Lookups(db dbx.DBTX) lookups.Repository
	Donations(db dbx.DBTX) donations.Repository
	Requests(db dbx.DBTX) requests.Repository
}
