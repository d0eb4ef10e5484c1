package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// RuleRepository stores the qualification rule catalog.
type RuleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.QualificationRule, error)
	List(ctx context.Context) ([]domain.QualificationRule, error)
	Upsert(ctx context.Context, rule *domain.QualificationRule) error
	Delete(ctx context.Context, id string) error
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates the Postgres repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.QualificationRule, error) {
	const query = `
        SELECT id, label, default_status, recall_required, ticket_required, mark_nc
        FROM qualification_rules WHERE id=$1`
	var rule domain.QualificationRule
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.Label,
		&rule.DefaultStatus,
		&rule.RecallRequired,
		&rule.TicketRequired,
		&rule.MarkNC,
	); err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context) ([]domain.QualificationRule, error) {
	const query = `
        SELECT id, label, default_status, recall_required, ticket_required, mark_nc
        FROM qualification_rules ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.QualificationRule
	for rows.Next() {
		var rule domain.QualificationRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Label,
			&rule.DefaultStatus,
			&rule.RecallRequired,
			&rule.TicketRequired,
			&rule.MarkNC,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *ruleRepository) Upsert(ctx context.Context, rule *domain.QualificationRule) error {
	const query = `
        INSERT INTO qualification_rules (id, label, default_status, recall_required, ticket_required, mark_nc)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET label=EXCLUDED.label, default_status=EXCLUDED.default_status,
            recall_required=EXCLUDED.recall_required, ticket_required=EXCLUDED.ticket_required,
            mark_nc=EXCLUDED.mark_nc, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query,
		rule.ID,
		rule.Label,
		rule.DefaultStatus,
		rule.RecallRequired,
		rule.TicketRequired,
		rule.MarkNC,
	)
	return err
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	return expectOneRow(r.pool.Exec(ctx, `DELETE FROM qualification_rules WHERE id=$1`, id))
}
