/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"account-ledger-go/internal/models"
	"account-ledger-go/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountService enforces the minimum-balance and blocked-account rules and
// implements money movement. Every mutating write is version-checked.
type AccountService struct {
	db         *sql.DB
	validate   *validator.Validate
	minBalance decimal.Decimal
}

var accountDescriptor = entityDescriptor[*models.Account]{
	table:      "accounts",
	primaryKey: "id",
	columns:    []string{"id", "balance", "is_blocked", "creation_time", "user_id"},
	scan:       scanAccount,
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var idStr, balanceStr, userIdStr string

	err := row.Scan(&idStr, &balanceStr, &account.Blocked, &account.CreationTime, &userIdStr, &account.Version)
	if err != nil {
		return nil, err
	}

	account.Id, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", idStr, err)
	}

	account.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balanceStr, err)
	}

	account.UserId, err = uuid.Parse(userIdStr)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", userIdStr, err)
	}

	return &account, nil
}

// Store inserts the account. The creation time is always server-assigned; a
// client-supplied value is discarded. A broken owner reference surfaces as a
// persistence failure through the foreign key constraint.
func (s *AccountService) Store(ctx context.Context, account *models.Account) error {
	if err := storeEntity(ctx, s.db, accountDescriptor, account, s.process); err != nil {
		return err
	}
	account.Version = 1

	zap.L().Info("Account created",
		zap.String("account_id", account.Id.String()),
		zap.String("user_id", account.UserId.String()),
		zap.String("balance", account.Balance.String()))
	return nil
}

func (s *AccountService) process(_ context.Context, account *models.Account) error {
	account.CreationTime = time.Now().UTC()

	if err := s.validate.Struct(account); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	// Floor applies at creation as well as on transfer debit.
	if account.Balance.LessThan(s.minBalance) {
		return fmt.Errorf("%w: opening balance %s is below the minimum of %s",
			store.ErrValidation, account.Balance, s.minBalance)
	}
	return nil
}

func (s *AccountService) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return findByID(ctx, s.db, accountDescriptor, id)
}

func (s *AccountService) FindAll(ctx context.Context) ([]models.Account, error) {
	accounts, err := findAll(ctx, s.db, accountDescriptor)
	if err != nil {
		return nil, err
	}

	result := make([]models.Account, 0, len(accounts))
	for _, account := range accounts {
		result = append(result, *account)
	}
	return result, nil
}

// FindByUser returns all accounts owned by the given user, oldest first.
func (s *AccountService) FindByUser(ctx context.Context, userId uuid.UUID) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAccountsByUser, userId.String())
	if err != nil {
		return nil, fmt.Errorf("%w: querying accounts for user %s: %v", store.ErrPersistence, userId, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning account row: %v", store.ErrPersistence, err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating account rows: %v", store.ErrPersistence, err)
	}

	return accounts, nil
}

// Update applies a partial update: only the blocked flag and the owning user
// are mutable. Balance and creation time never change through this path.
func (s *AccountService) Update(ctx context.Context, update models.AccountUpdate) (*models.Account, error) {
	if err := requireExisting("account", update.Id); err != nil {
		return nil, err
	}

	current, err := s.FindByID(ctx, update.Id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if update.Blocked != nil {
		merged.Blocked = *update.Blocked
	}
	if update.UserId != nil {
		merged.UserId = *update.UserId
	}

	fields := []fieldValue{
		{"is_blocked", merged.Blocked},
		{"user_id", merged.UserId.String()},
	}
	if err := updateFields(ctx, s.db, accountDescriptor, merged.Id, current.Version, fields); err != nil {
		return nil, err
	}
	merged.Version = current.Version + 1

	zap.L().Info("Account updated", zap.String("account_id", merged.Id.String()))
	return &merged, nil
}

// Deposit atomically credits a single account. Blocked accounts reject the
// deposit before any write.
func (s *AccountService) Deposit(ctx context.Context, deposit models.Deposit) (*models.Account, error) {
	if err := s.validate.Struct(deposit); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	if !deposit.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive, got %s", store.ErrValidation, deposit.Amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", store.ErrPersistence, err)
	}
	defer tx.Rollback()

	account, err := findByID(ctx, tx, accountDescriptor, deposit.AccountId)
	if err != nil {
		return nil, err
	}
	if account.Blocked {
		return nil, fmt.Errorf("%w: cannot deposit funds to account %s", store.ErrBlockedAccount, account.Id)
	}

	newBalance := account.Balance.Add(deposit.Amount)
	err = updateFields(ctx, tx, accountDescriptor, account.Id, account.Version,
		[]fieldValue{{"balance", newBalance.String()}})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing deposit: %v", store.ErrPersistence, err)
	}

	account.Balance = newBalance
	account.Version++

	zap.L().Info("Deposit applied",
		zap.String("account_id", account.Id.String()),
		zap.String("amount", deposit.Amount.String()),
		zap.String("new_balance", newBalance.String()))
	return account, nil
}

// Transfer debits one account and credits another as a single atomic unit.
// The blocked check runs before the floor check; both reject before any
// mutation, and a failed write rolls the whole transfer back.
func (s *AccountService) Transfer(ctx context.Context, transfer models.Transfer) error {
	if err := s.validate.Struct(transfer); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	if !transfer.Amount.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive, got %s", store.ErrValidation, transfer.Amount)
	}
	if transfer.FromAccountId == transfer.ToAccountId {
		return fmt.Errorf("%w: transfer requires two distinct accounts", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", store.ErrPersistence, err)
	}
	defer tx.Rollback()

	fromAccount, err := findByID(ctx, tx, accountDescriptor, transfer.FromAccountId)
	if err != nil {
		return err
	}
	toAccount, err := findByID(ctx, tx, accountDescriptor, transfer.ToAccountId)
	if err != nil {
		return err
	}

	if fromAccount.Blocked {
		return fmt.Errorf("%w: cannot transfer funds from account %s", store.ErrBlockedAccount, fromAccount.Id)
	}
	if toAccount.Blocked {
		return fmt.Errorf("%w: cannot transfer funds to account %s", store.ErrBlockedAccount, toAccount.Id)
	}

	fromBalance := fromAccount.Balance.Sub(transfer.Amount)
	if fromBalance.LessThan(s.minBalance) {
		return fmt.Errorf("%w: balance %s would fall below the minimum of %s",
			store.ErrInsufficientBalance, fromBalance, s.minBalance)
	}
	toBalance := toAccount.Balance.Add(transfer.Amount)

	err = updateFields(ctx, tx, accountDescriptor, fromAccount.Id, fromAccount.Version,
		[]fieldValue{{"balance", fromBalance.String()}})
	if err != nil {
		return err
	}
	err = updateFields(ctx, tx, accountDescriptor, toAccount.Id, toAccount.Version,
		[]fieldValue{{"balance", toBalance.String()}})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transfer: %v", store.ErrPersistence, err)
	}

	zap.L().Info("Transfer applied",
		zap.String("from_account_id", fromAccount.Id.String()),
		zap.String("to_account_id", toAccount.Id.String()),
		zap.String("amount", transfer.Amount.String()),
		zap.String("from_balance", fromBalance.String()),
		zap.String("to_balance", toBalance.String()))
	return nil
}
