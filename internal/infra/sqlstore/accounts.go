package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ClebyFrancisco/fineixo/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

const accountColumns = `id, owner_id, name, type, balance, bank, created_at`

func scanAccount(sc scanner) (domain.Account, error) {
	var (
		a       domain.Account
		bank    sql.NullString
		created string
	)
	if err := sc.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Balance, &bank, &created); err != nil {
		return a, err
	}
	a.Bank = bank.String
	var err error
	a.CreatedAt, err = parseTime(created)
	return a, err
}

func (q queries) GetAccount(ctx context.Context, ownerID, accountID string) (*domain.Account, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND owner_id = ?`, accountID, ownerID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("account", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (q queries) ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *tx) CreateAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Type, a.Balance.String(), nullable(a.Bank), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (t *tx) AdjustAccountBalance(ctx context.Context, ownerID, accountID string, delta decimal.Decimal) error {
	a, err := t.GetAccount(ctx, ownerID, accountID)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ? AND owner_id = ?`,
		a.Balance.Add(delta).String(), accountID, ownerID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return requireRow(res, "account", accountID)
}

// DeleteAccount relies on ON DELETE SET NULL to unlink cards, debts and transactions.
func (t *tx) DeleteAccount(ctx context.Context, ownerID, accountID string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND owner_id = ?`, accountID, ownerID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res, "account", accountID)
}

// ============================================================
// Wallets
// ============================================================

const walletColumns = `id, owner_id, name, balance, is_default, created_at`

func scanWallet(sc scanner) (domain.Wallet, error) {
	var (
		w       domain.Wallet
		created string
	)
	if err := sc.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Balance, &w.IsDefault, &created); err != nil {
		return w, err
	}
	var err error
	w.CreatedAt, err = parseTime(created)
	return w, err
}

func (q queries) getWallet(ctx context.Context, where string, args ...any) (*domain.Wallet, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE `+where, args...)
	w, err := scanWallet(row)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (q queries) GetWallet(ctx context.Context, ownerID, walletID string) (*domain.Wallet, error) {
	w, err := q.getWallet(ctx, `id = ? AND owner_id = ?`, walletID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("wallet", walletID)
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (q queries) GetDefaultWallet(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	w, err := q.getWallet(ctx, `owner_id = ? AND is_default = 1`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("wallet", "default")
	}
	if err != nil {
		return nil, fmt.Errorf("get default wallet: %w", err)
	}
	return w, nil
}

func (q queries) ListWallets(ctx context.Context, ownerID string) ([]domain.Wallet, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_id = ? ORDER BY is_default DESC, created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	out := []domain.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (t *tx) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO wallets (`+walletColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.OwnerID, w.Name, w.Balance.String(), boolInt(w.IsDefault), formatTime(w.CreatedAt))
	if err != nil {
		if w.IsDefault && isUniqueViolation(err) {
			return &domain.ErrConflict{Resource: "wallet", ID: "default"}
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (t *tx) AdjustWalletBalance(ctx context.Context, ownerID, walletID string, delta decimal.Decimal) error {
	w, err := t.GetWallet(ctx, ownerID, walletID)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE wallets SET balance = ? WHERE id = ? AND owner_id = ?`,
		w.Balance.Add(delta).String(), walletID, ownerID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	return requireRow(res, "wallet", walletID)
}

// ============================================================
// Categories
// ============================================================

func (q queries) GetCategory(ctx context.Context, ownerID, categoryID string) (*domain.Category, error) {
	var c domain.Category
	err := q.q.QueryRowContext(ctx,
		`SELECT id, owner_id, name, type FROM categories WHERE id = ? AND owner_id = ?`, categoryID, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("category", categoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (q queries) ListCategories(ctx context.Context, ownerID string) ([]domain.Category, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, owner_id, name, type FROM categories WHERE owner_id = ? ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *tx) CreateCategory(ctx context.Context, c *domain.Category) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, type) VALUES (?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Type)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}
