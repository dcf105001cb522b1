package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// DBObserver times store operations. *observability.Prom satisfies it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type observer struct {
	obs DBObserver
}

func (o observer) observe(op string, fn func() error) error {
	if o.obs != nil {
		return o.obs.ObserveDB(op, fn)
	}
	return fn()
}
