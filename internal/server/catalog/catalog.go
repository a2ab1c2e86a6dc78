// Package catalog holds the reference data (token types, categories,
// statuses, collection centers) as an immutable in-memory snapshot taken at
// startup.
package catalog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/lookups"
)

// required lists the keys the server cannot run without.
var required = map[models.LookupTable][]string{
	models.TableTokenTypes:        {common.TokenTypeRefresh, common.TokenTypeRecover, common.TokenTypeVerify},
	models.TableCategories:        nil,
	models.TableDonationStatus:    {common.DonationStatusPending},
	models.TableRequestStatus:     {common.RequestStatusRequested},
	models.TableCollectionCenters: nil,
}

type table struct {
	entries []models.LookupEntry
	byKey   map[string]string
	byID    map[string]string
}

// Catalog is safe for concurrent use; it is never written after Load.
type Catalog struct {
	tables map[models.LookupTable]table
}

// Load reads every reference table and fails if a required key is missing,
// which means the seed migration did not run.
func Load(ctx context.Context, repo lookups.Repository) (*Catalog, error) {
	c := &Catalog{tables: make(map[models.LookupTable]table, len(required))}

	for name, keys := range required {
		entries, err := repo.List(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		c.tables[name] = newTable(entries)

		for _, k := range keys {
			if _, ok := c.tables[name].byKey[k]; !ok {
				return nil, fmt.Errorf("%w: %s has no %q row", common.ErrorInternal, name, k)
			}
		}
	}

	return c, nil
}

// New builds a Catalog from already loaded entries. Used by tests.
func New(data map[models.LookupTable][]models.LookupEntry) *Catalog {
	c := &Catalog{tables: make(map[models.LookupTable]table, len(data))}
	for name, entries := range data {
		c.tables[name] = newTable(entries)
	}
	return c
}

func newTable(entries []models.LookupEntry) table {
	t := table{
		entries: append([]models.LookupEntry(nil), entries...),
		byKey:   make(map[string]string, len(entries)),
		byID:    make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		t.byKey[e.Key] = e.ID
		t.byID[e.ID] = e.Key
	}
	return t
}

// ID resolves key in name, or returns common.ErrorNotFound.
func (c *Catalog) ID(name models.LookupTable, key string) (string, error) {
	id, ok := c.tables[name].byKey[key]
	if !ok {
		return "", fmt.Errorf("%w: %s %q", common.ErrorNotFound, name, key)
	}
	return id, nil
}

// Has reports whether id exists in name.
func (c *Catalog) Has(name models.LookupTable, id string) bool {
	_, ok := c.tables[name].byID[id]
	return ok
}

// Entries returns a copy of the rows of name.
func (c *Catalog) Entries(name models.LookupTable) []models.LookupEntry {
	return append([]models.LookupEntry(nil), c.tables[name].entries...)
}

func (c *Catalog) TokenTypeID(key string) (string, error) {
	return c.ID(models.TableTokenTypes, key)
}

func (c *Catalog) DonationStatusID(key string) (string, error) {
	return c.ID(models.TableDonationStatus, key)
}

func (c *Catalog) RequestStatusID(key string) (string, error) {
	return c.ID(models.TableRequestStatus, key)
}
