package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Accounts
// ============================================================

func (s *LedgerService) CreateAccount(ctx context.Context, ownerID string, req *domain.AccountRequest) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	accountType := req.Type
	if accountType == "" {
		accountType = domain.AccountChecking
	}
	switch accountType {
	case domain.AccountChecking, domain.AccountSavings, domain.AccountInvestment:
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: "deve ser checking, savings ou investment"}
	}

	account := &domain.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Type:      accountType,
		Balance:   domain.RoundMoney(req.Balance),
		Bank:      strings.TrimSpace(req.Bank),
		CreatedAt: s.now().UTC(),
	}
	err := s.write(ctx, "create_account", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("owner_id", ownerID), zap.String("account_id", account.ID))
	return account, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListAccounts")
	defer span.End()

	return s.store.ListAccounts(ctx, ownerID)
}

func (s *LedgerService) GetAccount(ctx context.Context, ownerID, accountID string) (*domain.Account, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetAccount")
	defer span.End()

	return s.store.GetAccount(ctx, ownerID, accountID)
}

// DeleteAccount removes the account unconditionally; records that pointed at
// it lose the link.
func (s *LedgerService) DeleteAccount(ctx context.Context, ownerID, accountID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteAccount")
	defer span.End()

	err := s.write(ctx, "delete_account", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		if _, err := tx.GetAccount(ctx, ownerID, accountID); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, ownerID, accountID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("account deleted", zap.String("owner_id", ownerID), zap.String("account_id", accountID))
	return nil
}

// ============================================================
// Wallets
// ============================================================

func (s *LedgerService) CreateWallet(ctx context.Context, ownerID string, req *domain.WalletRequest) (*domain.Wallet, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateWallet")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	wallet := &domain.Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Balance:   domain.RoundMoney(req.Balance),
		CreatedAt: s.now().UTC(),
	}
	err := s.write(ctx, "create_wallet", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateWallet(ctx, wallet)
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *LedgerService) ListWallets(ctx context.Context, ownerID string) ([]domain.Wallet, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListWallets")
	defer span.End()

	return s.store.ListWallets(ctx, ownerID)
}

// DefaultWallet returns the owner's main wallet, creating it on first use.
// Concurrent first calls for one owner share a single creation.
func (s *LedgerService) DefaultWallet(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DefaultWallet")
	defer span.End()

	v, err, _ := s.wallets.Do(ownerID, func() (any, error) {
		w, err := s.store.GetDefaultWallet(ctx, ownerID)
		if err == nil {
			return w, nil
		}
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			return nil, err
		}
		err = s.write(ctx, "default_wallet", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
			w, err = s.defaultWalletTx(ctx, tx, ownerID)
			return err
		})
		return w, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Wallet), nil
}

// defaultWalletTx is the get-or-create factory of the default wallet inside a transaction.
func (s *LedgerService) defaultWalletTx(ctx context.Context, tx port.LedgerTx, ownerID string) (*domain.Wallet, error) {
	w, err := tx.GetDefaultWallet(ctx, ownerID)
	if err == nil {
		return w, nil
	}
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		return nil, err
	}

	w = &domain.Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      domain.DefaultWalletName,
		IsDefault: true,
		CreatedAt: s.now().UTC(),
	}
	if err := tx.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	s.logger.Info("default wallet created", zap.String("owner_id", ownerID), zap.String("wallet_id", w.ID))
	return w, nil
}

// ============================================================
// Categories & Transactions
// ============================================================

func (s *LedgerService) CreateCategory(ctx context.Context, ownerID string, req *domain.CategoryRequest) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCategory")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	categoryType := req.Type
	if categoryType == "" {
		categoryType = domain.TransactionExpense
	}
	if categoryType != domain.TransactionExpense && categoryType != domain.TransactionIncome {
		return nil, &domain.ErrValidation{Field: "type", Message: "deve ser income ou expense"}
	}

	category := &domain.Category{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Type:    categoryType,
	}
	err := s.write(ctx, "create_category", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, ownerID string) ([]domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListCategories")
	defer span.End()

	return s.store.ListCategories(ctx, ownerID)
}

// ListTransactions returns the owner's money movements, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	if filter.Month != "" && !domain.ValidMonth(filter.Month) {
		return nil, &domain.ErrValidation{Field: "month", Message: "use o formato YYYY-MM"}
	}
	return s.store.ListTransactions(ctx, ownerID, filter)
}
