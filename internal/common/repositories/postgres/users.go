package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkorobovv/trade-mirror/internal/common/domain"
	"github.com/mkorobovv/trade-mirror/pkg/errs"
)

type usersRepository struct {
	psql *pgxpool.Pool
}

func NewUsersRepository(pool *pgxpool.Pool) domain.UsersRepository {
	return &usersRepository{
		psql: pool,
	}
}

func (ur *usersRepository) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT
			id,
			email,
			password_hash,
			cash,
			total_invested,
			total_value,
			created_at,
			updated_at
		FROM trade_mirror.users`
	rows, err := ur.psql.Query(ctx, query)
	if err != nil {
		return nil, errs.NewStack(err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.User)
	users := []*domain.User{}
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.Cash,
			&user.TotalInvested,
			&user.TotalValue,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, errs.NewStack(err)
		}

		u := user.CreateDomain()
		byID[u.ID] = u
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStack(err)
	}

	if err := ur.loadHoldings(ctx, byID); err != nil {
		return nil, err
	}
	if err := ur.loadTransactions(ctx, byID); err != nil {
		return nil, err
	}

	return users, nil
}

func (ur *usersRepository) loadHoldings(ctx context.Context, byID map[string]*domain.User) error {
	query := `SELECT
			user_id,
			symbol,
			name,
			quantity,
			avg_price,
			current_price
		FROM trade_mirror.holdings`
	rows, err := ur.psql.Query(ctx, query)
	if err != nil {
		return errs.NewStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		holding := &Holding{}
		if err := rows.Scan(
			&holding.UserID,
			&holding.Symbol,
			&holding.Name,
			&holding.Quantity,
			&holding.AvgPrice,
			&holding.CurrentPrice,
		); err != nil {
			return errs.NewStack(err)
		}

		user, ok := byID[holding.UserID]
		if !ok {
			continue
		}

		user.Portfolio.Holdings = append(user.Portfolio.Holdings, holding.CreateDomain())
	}

	return errs.NewStack(rows.Err())
}

func (ur *usersRepository) loadTransactions(ctx context.Context, byID map[string]*domain.User) error {
	query := `SELECT
			id,
			user_id,
			type,
			symbol,
			name,
			quantity,
			price,
			amount,
			executed_at
		FROM trade_mirror.transactions
		ORDER BY executed_at ASC`
	rows, err := ur.psql.Query(ctx, query)
	if err != nil {
		return errs.NewStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		tx := &Transaction{}
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Type,
			&tx.Symbol,
			&tx.Name,
			&tx.Quantity,
			&tx.Price,
			&tx.Amount,
			&tx.ExecutedAt,
		); err != nil {
			return errs.NewStack(err)
		}

		user, ok := byID[tx.UserID]
		if !ok {
			continue
		}

		user.Portfolio.Transactions = append(user.Portfolio.Transactions, tx.CreateDomain())
	}

	return errs.NewStack(rows.Err())
}

func (ur *usersRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO trade_mirror.users(
			id,
			email,
			password_hash,
			cash,
			total_invested,
			total_value,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := ur.psql.Exec(ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Portfolio.Cash,
		user.Portfolio.TotalInvested,
		user.Portfolio.TotalValue,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return errs.NewStack(err)
	}

	return nil
}

// SaveAllUsers writes the full user set in one transaction: users are
// upserted, holdings replaced wholesale, transactions appended. The
// non-incremental contract keeps the storage layer trivial.
func (ur *usersRepository) SaveAllUsers(ctx context.Context, users []*domain.User) error {
	tx, err := ur.psql.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errs.NewStack(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM trade_mirror.holdings`); err != nil {
		return errs.NewStack(err)
	}

	for _, user := range users {
		query := `INSERT INTO trade_mirror.users(
				id, email, password_hash, cash, total_invested, total_value, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				cash = EXCLUDED.cash,
				total_invested = EXCLUDED.total_invested,
				total_value = EXCLUDED.total_value,
				updated_at = EXCLUDED.updated_at`
		if _, err := tx.Exec(ctx, query,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.Portfolio.Cash,
			user.Portfolio.TotalInvested,
			user.Portfolio.TotalValue,
			user.CreatedAt,
			user.UpdatedAt,
		); err != nil {
			return errs.NewStack(err)
		}

		for _, holding := range user.Portfolio.Holdings {
			query := `INSERT INTO trade_mirror.holdings(
					user_id, symbol, name, quantity, avg_price, current_price
				)
				VALUES ($1, $2, $3, $4, $5, $6)`
			if _, err := tx.Exec(ctx, query,
				user.ID,
				holding.Symbol,
				holding.Name,
				holding.Quantity,
				holding.AvgPrice,
				holding.CurrentPrice,
			); err != nil {
				return errs.NewStack(err)
			}
		}

		for _, transaction := range user.Portfolio.Transactions {
			query := `INSERT INTO trade_mirror.transactions(
					id, user_id, type, symbol, name, quantity, price, amount, executed_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO NOTHING`
			if _, err := tx.Exec(ctx, query,
				transaction.ID,
				user.ID,
				transaction.Type,
				transaction.Symbol,
				transaction.Name,
				transaction.Quantity,
				transaction.Price,
				transaction.Amount,
				transaction.Timestamp,
			); err != nil {
				return errs.NewStack(err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.NewStack(err)
	}

	return nil
}
