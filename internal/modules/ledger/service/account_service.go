package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ledgertx/internal/modules/ledger/domain"
	ledgerout "ledgertx/internal/modules/ledger/port/out"
	apperrors "ledgertx/internal/platform/errors"
	"ledgertx/internal/platform/money"
)

type AccountService struct {
	store         ledgerout.AccountStore
	allowNegative bool
}

// NewAccountService refuses debits that would overdraw an account unless
// allowNegative is set.
func NewAccountService(store ledgerout.AccountStore, allowNegative bool) *AccountService {
	return &AccountService{store: store, allowNegative: allowNegative}
}

// ValidateTransfer checks the arguments shared by every transfer variant.
func (s *AccountService) ValidateTransfer(from, to string, amount decimal.Decimal) error {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: from and to accounts are required", apperrors.ErrInvalidInput)
	}
	if from == to {
		return apperrors.ErrSameAccount
	}
	if err := money.RequirePositive(amount); err != nil {
		return err
	}
	_, err := money.ToMinor(amount)
	return err
}

func (s *AccountService) Debit(ctx context.Context, name string, amount decimal.Decimal) error {
	if err := s.store.Debit(ctx, name, amount, s.allowNegative); err != nil {
		return fmt.Errorf("debit %s: %w", name, err)
	}
	return nil
}

func (s *AccountService) Credit(ctx context.Context, name string, amount decimal.Decimal) error {
	if err := s.store.Credit(ctx, name, amount); err != nil {
		return fmt.Errorf("credit %s: %w", name, err)
	}
	return nil
}

func (s *AccountService) Get(ctx context.Context, name string) (domain.Account, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Account{}, fmt.Errorf("%w: account name is required", apperrors.ErrInvalidInput)
	}
	return s.store.Get(ctx, name)
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// Seed sets each account to its given balance, creating it when missing.
func (s *AccountService) Seed(ctx context.Context, accounts []domain.Account) error {
	for _, account := range accounts {
		if err := account.Validate(); err != nil {
			return err
		}
		if account.Balance.IsNegative() && !s.allowNegative {
			return fmt.Errorf("%w: seed balance for %s is negative", apperrors.ErrInvalidInput, account.Name)
		}
		if _, err := money.ToMinor(account.Balance); err != nil {
			return err
		}
		if err := s.store.Upsert(ctx, account); err != nil {
			return fmt.Errorf("seed %s: %w", account.Name, err)
		}
	}
	return nil
}

func (s *AccountService) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}
