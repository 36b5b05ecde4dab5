package service

import (
	"context"

	"crossover_bot/pkg/db"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store - документное хранилище (аудит): дневные цены, сигналы, ордера.
type Store struct {
	db  db.TxManager
	log *zap.Logger
}

func New(tx *db.PgTxManager, log *zap.Logger) *Store {
	return &Store{db: tx, log: log.Named("store")}
}

// Migrate создаёт таблицы, если их ещё нет.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Conn().Exec(ctx, schema)
	return errors.Wrap(err, "apply schema")
}
