package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/transaction"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionsRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewTransactionsRepo(pool *pgxpool.Pool, obs Observer) *TransactionsRepo {
	return &TransactionsRepo{pool: pool, obs: observerOrNoop(obs)}
}

// amounts travel as integer cents; the column is NUMERIC(14,2)
const transactionSelect = `
	SELECT t.id, (t.amount * 100)::bigint, t.concept, t.type, t.date, t.user_id,
		u.name, u.email, t.created_at, t.updated_at
	FROM transactions t
	JOIN users u ON u.id = t.user_id
`

func scanTransaction(row pgx.Row) (transaction.Transaction, error) {
	var (
		t     transaction.Transaction
		cents int64
		owner transaction.Owner
	)

	err := row.Scan(&t.ID, &cents, &t.Concept, &t.Type, &t.Date, &t.UserID, &owner.Name, &owner.Email, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return transaction.Transaction{}, err
	}

	t.Amount = transaction.AmountFromCents(cents)
	t.User = &owner
	return t, nil
}

func (r *TransactionsRepo) List(ctx context.Context, filter transaction.ListFilter) ([]transaction.Transaction, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Type != nil {
		conds = append(conds, fmt.Sprintf("t.type = $%d", argsPosition))
		args = append(args, string(*filter.Type))
		argsPosition++
	}

	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("t.concept ILIKE $%d", argsPosition))
		args = append(args, "%"+escapeLike(*filter.Query)+"%")
		argsPosition++
	}

	if filter.From != nil {
		conds = append(conds, fmt.Sprintf("t.date >= $%d", argsPosition))
		args = append(args, *filter.From)
		argsPosition++
	}

	if filter.To != nil {
		conds = append(conds, fmt.Sprintf("t.date <= $%d", argsPosition))
		args = append(args, *filter.To)
	}

	query := transactionSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.date DESC, t.id DESC"

	out := make([]transaction.Transaction, 0)

	err := r.obs.ObserveDB("transactions.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TransactionsRepo) GetByID(ctx context.Context, id string) (transaction.Transaction, error) {
	var t transaction.Transaction

	err := r.obs.ObserveDB("transactions.get_by_id", func() error {
		var err error
		t, err = scanTransaction(r.pool.QueryRow(ctx, transactionSelect+" WHERE t.id = $1", id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return transaction.Transaction{}, transaction.ErrNotFound
		}
		return transaction.Transaction{}, err
	}
	return t, nil
}

func (r *TransactionsRepo) Create(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error) {
	err := r.obs.ObserveDB("transactions.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO transactions (id, amount, concept, type, date, user_id, created_at, updated_at)
			VALUES ($1, $2::numeric / 100, $3, $4, $5, $6, $7, $8)`,
			t.ID, t.Amount.Cents(), t.Concept, t.Type, t.Date, t.UserID, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return transaction.Transaction{}, err
	}
	return r.GetByID(ctx, t.ID)
}

func (r *TransactionsRepo) Update(ctx context.Context, id string, in transaction.Input, date time.Time) (transaction.Transaction, error) {
	var affected int64

	err := r.obs.ObserveDB("transactions.update", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE transactions
			SET amount = $2::numeric / 100, concept = $3, type = $4, date = $5, updated_at = NOW()
			WHERE id = $1`,
			id, in.Amount.Cents(), strings.TrimSpace(in.Concept), in.Type, date,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return transaction.Transaction{}, err
	}
	if affected == 0 {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TransactionsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.obs.ObserveDB("transactions.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return transaction.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
