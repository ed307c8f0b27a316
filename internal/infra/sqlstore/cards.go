package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
)

const cardColumns = `id, owner_id, name, credit_limit, available_limit, best_purchase_day, due_day,
	account_id, created_at, updated_at`

func scanCard(sc scanner) (domain.CreditCard, error) {
	var (
		c                domain.CreditCard
		account          sql.NullString
		created, updated string
	)
	if err := sc.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Limit, &c.AvailableLimit,
		&c.BestPurchaseDay, &c.DueDay, &account, &created, &updated); err != nil {
		return c, err
	}
	c.AccountID = account.String
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return c, err
	}
	c.UpdatedAt, err = parseTime(updated)
	return c, err
}

func (q queries) GetCreditCard(ctx context.Context, ownerID, cardID string) (*domain.CreditCard, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ? AND owner_id = ?`, cardID, ownerID)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("credit_card", cardID)
	}
	if err != nil {
		return nil, fmt.Errorf("get credit card: %w", err)
	}
	return &c, nil
}

func (q queries) ListCreditCards(ctx context.Context, ownerID string) ([]domain.CreditCard, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	out := []domain.CreditCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *tx) CreateCreditCard(ctx context.Context, c *domain.CreditCard) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO credit_cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Limit.String(), c.AvailableLimit.String(), c.BestPurchaseDay, c.DueDay,
		nullable(c.AccountID), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert credit card: %w", err)
	}
	return nil
}

func (t *tx) UpdateCreditCard(ctx context.Context, c *domain.CreditCard) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE credit_cards
		 SET name = ?, credit_limit = ?, available_limit = ?, best_purchase_day = ?, due_day = ?,
		     account_id = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		c.Name, c.Limit.String(), c.AvailableLimit.String(), c.BestPurchaseDay, c.DueDay,
		nullable(c.AccountID), formatTime(c.UpdatedAt), c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update credit card: %w", err)
	}
	return requireRow(res, "credit_card", c.ID)
}

// DeleteCreditCard removes the card. Its debts go with it (ON DELETE CASCADE) and
// transactions keep their history with the card and debt links cleared.
func (t *tx) DeleteCreditCard(ctx context.Context, ownerID, cardID string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM credit_cards WHERE id = ? AND owner_id = ?`, cardID, ownerID)
	if err != nil {
		return fmt.Errorf("delete credit card: %w", err)
	}
	return requireRow(res, "credit_card", cardID)
}
