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

package store

import (
	"context"
	"errors"

	"account-ledger-go/internal/models"

	"github.com/google/uuid"
)

// Sentinel errors shared across the service layer. Callers classify failures
// with errors.Is; no unclassified error escapes the database package.
var (
	// ErrValidation means the input violates a business invariant (minor
	// without an eligible guardian, opening balance below the floor, update
	// of a record with no id).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means a referenced entity id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrBlockedAccount means the operation targets a blocked account.
	ErrBlockedAccount = errors.New("account is blocked")

	// ErrInsufficientBalance means a transfer debit would drop the source
	// account below the minimum balance floor.
	ErrInsufficientBalance = errors.New("balance below minimum")

	// ErrConcurrentModification means an optimistic-consistency check
	// detected a conflicting concurrent write. Retryable.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrPersistence means an underlying store fault unrelated to business
	// rules (connectivity, constraint violation not otherwise classified).
	ErrPersistence = errors.New("persistence failure")
)

// Ledger defines the contract the database service satisfies. The HTTP layer
// (out of scope here) maps the sentinel errors above onto status codes.
type Ledger interface {
	// --- Users ---
	StoreUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, update models.UserUpdate) (*models.User, error)
	GetUserById(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)

	// --- Accounts ---
	StoreAccount(ctx context.Context, account *models.Account) error
	UpdateAccount(ctx context.Context, update models.AccountUpdate) (*models.Account, error)
	GetAccountById(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccounts(ctx context.Context) ([]models.Account, error)
	GetUserAccounts(ctx context.Context, userId uuid.UUID) ([]models.Account, error)

	// --- Money movement ---
	Deposit(ctx context.Context, deposit models.Deposit) (*models.Account, error)
	Transfer(ctx context.Context, transfer models.Transfer) error

	// --- Lifecycle ---
	Close()
}
