package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ClebyFrancisco/fineixo/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const transactionColumns = `id, owner_id, type, amount, description, date, month, category_id, account_id,
	wallet_id, credit_card_id, debt_id, created_at`

func scanTransaction(sc scanner) (domain.Transaction, error) {
	var (
		t                                     domain.Transaction
		category, account, wallet, card, debt sql.NullString
		date, created                         string
	)
	err := sc.Scan(&t.ID, &t.OwnerID, &t.Type, &t.Amount, &t.Description, &date, &t.Month,
		&category, &account, &wallet, &card, &debt, &created)
	if err != nil {
		return t, err
	}
	t.CategoryID = category.String
	t.AccountID = account.String
	t.WalletID = wallet.String
	t.CreditCardID = card.String
	t.DebtID = debt.String
	if t.Date, err = parseDate(date); err != nil {
		return t, err
	}
	t.CreatedAt, err = parseTime(created)
	return t, err
}

func (q queries) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ListTransactions")
	defer span.End()

	where := []string{"owner_id = ?"}
	args := []any{ownerID}
	if filter.DebtID != "" {
		where = append(where, "debt_id = ?")
		args = append(args, filter.DebtID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Month != "" {
		where = append(where, "month = ?")
		args = append(args, filter.Month)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+strings.Join(where, " AND ")+
			` ORDER BY date DESC, created_at DESC, rowid DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	span.SetAttributes(attribute.Int("transactions.count", len(out)))
	return out, rows.Err()
}

// PaidTotals sums payment transactions per debt. Amounts are added as
// decimals here because SQLite would sum the text column as floating point.
func (q queries) PaidTotals(ctx context.Context, ownerID string, debtIDs ...string) (map[string]decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.PaidTotals")
	defer span.End()

	query := `SELECT debt_id, amount FROM transactions
	          WHERE owner_id = ? AND type = ? AND debt_id IS NOT NULL`
	args := []any{ownerID, domain.TransactionExpense}
	if len(debtIDs) > 0 {
		query += ` AND debt_id IN (` + placeholders(len(debtIDs)) + `)`
		for _, id := range debtIDs {
			args = append(args, id)
		}
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("paid totals: %w", err)
	}
	defer rows.Close()

	totals := map[string]decimal.Decimal{}
	for rows.Next() {
		var (
			debtID string
			amount decimal.Decimal
		)
		if err := rows.Scan(&debtID, &amount); err != nil {
			return nil, fmt.Errorf("scan paid total: %w", err)
		}
		totals[debtID] = totals[debtID].Add(amount)
	}
	return totals, rows.Err()
}

func (t *tx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.OwnerID, txn.Type, txn.Amount.String(), txn.Description, formatDate(txn.Date), txn.Month,
		nullable(txn.CategoryID), nullable(txn.AccountID), nullable(txn.WalletID),
		nullable(txn.CreditCardID), nullable(txn.DebtID), formatTime(txn.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
