package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ClebyFrancisco/fineixo/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

const debtColumns = `id, owner_id, description, amount, kind, type, category_id, credit_card_id, account_id,
	due_date, purchase_date, paid, paid_at, installment_current, installment_total, group_id, month,
	version, created_at, updated_at`

func scanDebt(sc scanner) (domain.Debt, error) {
	var (
		d                              domain.Debt
		kind, typ                      string
		category, card, account, group sql.NullString
		purchase, paidAt               sql.NullString
		current, total                 sql.NullInt64
		due, created, updated          string
	)
	err := sc.Scan(&d.ID, &d.OwnerID, &d.Description, &d.Amount, &kind, &typ, &category, &card, &account,
		&due, &purchase, &d.Paid, &paidAt, &current, &total, &group, &d.Month,
		&d.Version, &created, &updated)
	if err != nil {
		return d, err
	}
	d.Kind = domain.DebtKind(kind)
	d.Type = domain.DebtType(typ)
	d.CategoryID = category.String
	d.CreditCardID = card.String
	d.AccountID = account.String
	d.GroupID = group.String
	if current.Valid && total.Valid {
		d.Installments = &domain.Installments{Current: int(current.Int64), Total: int(total.Int64)}
	}

	if d.DueDate, err = parseDate(due); err != nil {
		return d, err
	}
	if purchase.Valid {
		p, err := parseDate(purchase.String)
		if err != nil {
			return d, err
		}
		d.PurchaseDate = &p
	}
	if paidAt.Valid {
		p, err := parseDate(paidAt.String)
		if err != nil {
			return d, err
		}
		d.PaidAt = &p
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return d, err
	}
	d.UpdatedAt, err = parseTime(updated)
	return d, err
}

func (q queries) GetDebt(ctx context.Context, ownerID, debtID string) (*domain.Debt, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE id = ? AND owner_id = ?`, debtID, ownerID)
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("debt", debtID)
	}
	if err != nil {
		return nil, fmt.Errorf("get debt: %w", err)
	}
	return &d, nil
}

func (q queries) ListDebts(ctx context.Context, ownerID string, filter domain.DebtFilter) ([]domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ListDebts")
	defer span.End()

	where := []string{"owner_id = ?"}
	args := []any{ownerID}
	if filter.CreditCardID != "" {
		where = append(where, "credit_card_id = ?")
		args = append(args, filter.CreditCardID)
	}
	if filter.Month != "" {
		where = append(where, "month = ?")
		args = append(args, filter.Month)
	}
	if filter.Paid != nil {
		where = append(where, "paid = ?")
		args = append(args, boolInt(*filter.Paid))
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE `+strings.Join(where, " AND ")+
			` ORDER BY due_date, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	out := []domain.Debt{}
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		out = append(out, d)
	}
	span.SetAttributes(attribute.Int("debts.count", len(out)))
	return out, rows.Err()
}

func installmentArgs(d *domain.Debt) (current, total any) {
	if d.Installments == nil {
		return nil, nil
	}
	return d.Installments.Current, d.Installments.Total
}

func (t *tx) CreateDebt(ctx context.Context, d *domain.Debt) error {
	current, total := installmentArgs(d)
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO debts (`+debtColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Description, d.Amount.String(), string(d.Kind), string(d.Type),
		nullable(d.CategoryID), nullable(d.CreditCardID), nullable(d.AccountID),
		formatDate(d.DueDate), nullableDate(d.PurchaseDate), boolInt(d.Paid), nullableDate(d.PaidAt),
		current, total, nullable(d.GroupID), d.Month,
		d.Version, formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert debt: %w", err)
	}
	return nil
}

// UpdateDebt writes d only if the stored version still equals d.Version, then
// bumps d.Version.
func (t *tx) UpdateDebt(ctx context.Context, d *domain.Debt) error {
	current, total := installmentArgs(d)
	res, err := t.q.ExecContext(ctx,
		`UPDATE debts
		 SET description = ?, amount = ?, kind = ?, type = ?, category_id = ?, credit_card_id = ?,
		     account_id = ?, due_date = ?, purchase_date = ?, paid = ?, paid_at = ?,
		     installment_current = ?, installment_total = ?, group_id = ?, month = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND version = ?`,
		d.Description, d.Amount.String(), string(d.Kind), string(d.Type), nullable(d.CategoryID),
		nullable(d.CreditCardID), nullable(d.AccountID), formatDate(d.DueDate), nullableDate(d.PurchaseDate),
		boolInt(d.Paid), nullableDate(d.PaidAt), current, total, nullable(d.GroupID), d.Month,
		formatTime(d.UpdatedAt), d.ID, d.OwnerID, d.Version)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := t.GetDebt(ctx, d.OwnerID, d.ID); err != nil {
			return err
		}
		return &domain.ErrConflict{Resource: "debt", ID: d.ID}
	}
	d.Version++
	return nil
}

// DeleteDebt removes the debt; payment transactions stay with debt_id cleared
// by ON DELETE SET NULL.
func (t *tx) DeleteDebt(ctx context.Context, ownerID, debtID string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM debts WHERE id = ? AND owner_id = ?`, debtID, ownerID)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return requireRow(res, "debt", debtID)
}
