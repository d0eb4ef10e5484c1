package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Kind   *domain.AccountKind
	Status *string
	NCOnly bool
	Limit  int
	Offset int
}

// AccountRepository encapsulates account persistence. Interactions are append-only:
// the only way to add one is RecordInteraction, and no method removes one short of
// deleting the account.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// Update persists descriptive and state fields; Interactions on the argument are ignored.
	Update(ctx context.Context, account *domain.Account) error
	// RecordInteraction persists the account state and prepends interaction in one step.
	RecordInteraction(ctx context.Context, account *domain.Account, interaction domain.Interaction) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	Delete(ctx context.Context, id string) error
	CountRuleReferences(ctx context.Context, ruleID string) (int, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository instantiates the Postgres repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, name, kind, status, is_nc, next_recall, contact_name, email, phone, city,
               last_interaction, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (id, name, kind, status, is_nc, next_recall, contact_name, email, phone, city,
                              last_interaction, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Kind,
		account.Status,
		account.IsNC,
		account.NextRecall,
		account.ContactName,
		account.Email,
		account.Phone,
		account.City,
		account.LastInteraction,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return err
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	return updateAccount(ctx, r.pool, account)
}

func updateAccount(ctx context.Context, q querier, account *domain.Account) error {
	const query = `
        UPDATE accounts SET name=$1, kind=$2, status=$3, is_nc=$4, next_recall=$5, contact_name=$6,
            email=$7, phone=$8, city=$9, last_interaction=$10, updated_at=$11
        WHERE id=$12`
	return expectOneRow(q.Exec(ctx, query,
		account.Name,
		account.Kind,
		account.Status,
		account.IsNC,
		account.NextRecall,
		account.ContactName,
		account.Email,
		account.Phone,
		account.City,
		account.LastInteraction,
		account.UpdatedAt,
		account.ID,
	))
}

func (r *accountRepository) RecordInteraction(ctx context.Context, account *domain.Account, in domain.Interaction) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := updateAccount(ctx, tx, account); err != nil {
			return err
		}
		const query = `
            INSERT INTO interactions (id, account_id, occurred_at, channel, rule_id, comment, agent)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`
		_, err := tx.Exec(ctx, query,
			in.ID,
			account.ID,
			in.Timestamp,
			in.Channel,
			in.RuleID,
			in.Comment,
			in.Agent,
		)
		return err
	})
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	interactions, err := r.listInteractions(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Interactions = interactions
	return account, nil
}

func (r *accountRepository) listInteractions(ctx context.Context, accountID string) ([]domain.Interaction, error) {
	const query = `
        SELECT id, account_id, occurred_at, channel, rule_id, comment, agent
        FROM interactions WHERE account_id=$1 ORDER BY occurred_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(
			&in.ID,
			&in.AccountID,
			&in.Timestamp,
			&in.Channel,
			&in.RuleID,
			&in.Comment,
			&in.Agent,
		); err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

// List returns accounts without their interaction history.
func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.Account, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, fmt.Sprintf("kind=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.NCOnly {
		clauses = append(clauses, "is_nc")
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s ORDER BY updated_at DESC%s`,
		accountColumns, strings.Join(clauses, " AND "), pageClause(filter.Limit, filter.Offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	return expectOneRow(r.pool.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id))
}

func (r *accountRepository) CountRuleReferences(ctx context.Context, ruleID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM interactions WHERE rule_id=$1`, ruleID).Scan(&count)
	return count, err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Kind,
		&account.Status,
		&account.IsNC,
		&account.NextRecall,
		&account.ContactName,
		&account.Email,
		&account.Phone,
		&account.City,
		&account.LastInteraction,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func pageClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}
