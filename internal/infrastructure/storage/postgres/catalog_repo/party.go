// Package catalog_repo provides PostgreSQL storage for catalogs.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/domain/catalogs/party"
	"tradebook/internal/infrastructure/storage/postgres"
)

const partyTable = "cat_parties"

var partyCols = postgres.Columns[party.Party]()

var _ party.Repository = (*PartyRepo)(nil)

// PartyRepo implements party.Repository.
type PartyRepo struct {
	txManager *postgres.TxManager
}

// NewPartyRepo creates a new party repository.
func NewPartyRepo(txManager *postgres.TxManager) *PartyRepo {
	return &PartyRepo{txManager: txManager}
}

// Builder returns a new squirrel builder.
func (r *PartyRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a party.
func (r *PartyRepo) Create(ctx context.Context, p *party.Party) error {
	sql, args, err := r.insertQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", partyTable, err)
	}
	return nil
}

func (r *PartyRepo) insertQuery(p *party.Party) squirrel.InsertBuilder {
	return r.Builder().
		Insert(partyTable).
		Columns(partyCols...).
		Values(postgres.Values(p, partyCols)...)
}

// GetByID retrieves a party by ID.
func (r *PartyRepo) GetByID(ctx context.Context, partyID id.ID) (*party.Party, error) {
	sql, args, err := r.selectByID(partyID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p party.Party
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("party", partyID.String())
		}
		return nil, fmt.Errorf("get %s: %w", partyTable, err)
	}
	return &p, nil
}

func (r *PartyRepo) selectByID(partyID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select(partyCols...).
		From(partyTable).
		Where(squirrel.Eq{"id": partyID})
}
