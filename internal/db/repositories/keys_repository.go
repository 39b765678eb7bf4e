package repositories

import (
	"context"
	"database/sql"
	"errors"

	"fieldops/ledgersync/internal/constants"
	"fieldops/ledgersync/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

type KeysRepo struct {
	db *sqlx.DB
}

func NewApiKeysRepo(db *sqlx.DB) *KeysRepo {
	return &KeysRepo{db}
}

// GetActive returns nil when the key is unknown or revoked.
func (r *KeysRepo) GetActive(ctx context.Context, key string) (*entities.ApiKey, error) {
	var keyRes entities.ApiKey

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(constants.GetActiveAPIKey), key).StructScan(&keyRes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &keyRes, nil
}

func (r *KeysRepo) Insert(ctx context.Context, key *entities.ApiKey) error {
	_, err := r.db.NamedExecContext(ctx, constants.InsertAPIKey, key)
	return err
}
