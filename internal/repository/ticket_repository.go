package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	AccountID  *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	// OverdueAt keeps only tickets whose SLA deadline is before the given instant.
	OverdueAt *time.Time
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence. The timeline is append-only:
// Create stores the initial events and Save appends; nothing rewrites an event.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Save persists the ticket fields and appends events to its timeline in one step.
	// ticket.Timeline is ignored.
	Save(ctx context.Context, ticket *domain.Ticket, appended ...domain.TimelineEvent) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// List returns tickets newest first, without their timelines.
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, reference, account_id, account_name, subject, description, priority, status, type,
               channel, department, assignee, created_at, updated_at, sla_deadline, resolution_summary,
               corrective_action, satisfied, final_comment, internal_notes, archived, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            INSERT INTO tickets (id, reference, account_id, account_name, subject, description, priority, status,
                type, channel, department, assignee, created_at, updated_at, sla_deadline, resolution_summary,
                corrective_action, satisfied, final_comment, internal_notes, archived, closed_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`
		if _, err := tx.Exec(ctx, query,
			ticket.ID,
			ticket.Reference,
			ticket.AccountID,
			ticket.AccountName,
			ticket.Subject,
			ticket.Description,
			ticket.Priority,
			ticket.Status,
			ticket.Type,
			ticket.Channel,
			ticket.Department,
			ticket.Assignee,
			ticket.CreatedAt,
			ticket.UpdatedAt,
			ticket.SLADeadline,
			ticket.ResolutionSummary,
			ticket.CorrectiveAction,
			ticket.Satisfied,
			ticket.FinalComment,
			notesOrEmpty(ticket.InternalNotes),
			ticket.Archived,
			ticket.ClosedAt,
		); err != nil {
			return err
		}
		return appendTimeline(ctx, tx, ticket.Timeline)
	})
}

func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket, appended ...domain.TimelineEvent) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            UPDATE tickets SET account_name=$1, subject=$2, description=$3, priority=$4, status=$5, type=$6,
                channel=$7, department=$8, assignee=$9, updated_at=$10, resolution_summary=$11,
                corrective_action=$12, satisfied=$13, final_comment=$14, internal_notes=$15, archived=$16,
                closed_at=$17
            WHERE id=$18`
		if err := expectOneRow(tx.Exec(ctx, query,
			ticket.AccountName,
			ticket.Subject,
			ticket.Description,
			ticket.Priority,
			ticket.Status,
			ticket.Type,
			ticket.Channel,
			ticket.Department,
			ticket.Assignee,
			ticket.UpdatedAt,
			ticket.ResolutionSummary,
			ticket.CorrectiveAction,
			ticket.Satisfied,
			ticket.FinalComment,
			notesOrEmpty(ticket.InternalNotes),
			ticket.Archived,
			ticket.ClosedAt,
			ticket.ID,
		)); err != nil {
			return err
		}
		return appendTimeline(ctx, tx, appended)
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	timeline, err := listTimeline(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	ticket.Timeline = timeline
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		clauses = append(clauses, fmt.Sprintf("account_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.OverdueAt != nil {
		args = append(args, *filter.OverdueAt)
		clauses = append(clauses, fmt.Sprintf("sla_deadline < $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC%s`,
		ticketColumns, strings.Join(clauses, " AND "), pageClause(filter.Limit, filter.Offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	return expectOneRow(r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Reference,
		&ticket.AccountID,
		&ticket.AccountName,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Type,
		&ticket.Channel,
		&ticket.Department,
		&ticket.Assignee,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.SLADeadline,
		&ticket.ResolutionSummary,
		&ticket.CorrectiveAction,
		&ticket.Satisfied,
		&ticket.FinalComment,
		&ticket.InternalNotes,
		&ticket.Archived,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func appendTimeline(ctx context.Context, q querier, events []domain.TimelineEvent) error {
	const query = `
        INSERT INTO ticket_timeline (id, ticket_id, kind, content, author, created_at, status_from, status_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, ev := range events {
		if _, err := q.Exec(ctx, query,
			ev.ID,
			ev.TicketID,
			ev.Kind,
			ev.Content,
			ev.Author,
			ev.CreatedAt,
			ev.StatusFrom,
			ev.StatusTo,
		); err != nil {
			return fmt.Errorf("append timeline event %s: %w", ev.ID, err)
		}
	}
	return nil
}

func listTimeline(ctx context.Context, q querier, ticketID string) ([]domain.TimelineEvent, error) {
	const query = `
        SELECT id, ticket_id, kind, content, author, created_at, status_from, status_to
        FROM ticket_timeline WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEvent
	for rows.Next() {
		var ev domain.TimelineEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.TicketID,
			&ev.Kind,
			&ev.Content,
			&ev.Author,
			&ev.CreatedAt,
			&ev.StatusFrom,
			&ev.StatusTo,
		); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

func notesOrEmpty(notes []string) []string {
	if notes == nil {
		return []string{}
	}
	return notes
}
