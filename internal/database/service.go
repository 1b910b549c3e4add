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

	"account-ledger-go/internal/models"
	"account-ledger-go/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Ledger.
var _ store.Ledger = (*Service)(nil)

type Service struct {
	db       *sql.DB
	users    *UserService
	accounts *AccountService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig, ledgerCfg models.LedgerConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if ledgerCfg.MinimumBalance.IsNegative() {
		return nil, fmt.Errorf("minimum balance cannot be negative, got %s", ledgerCfg.MinimumBalance)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db, ledgerCfg)
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// newService wires the entity services onto an already-open handle. Split out
// so tests can run against an in-memory database without the pool setup.
func newService(db *sql.DB, ledgerCfg models.LedgerConfig) *Service {
	validate := validator.New()
	return &Service{
		db:       db,
		users:    &UserService{db: db, validate: validate},
		accounts: &AccountService{db: db, validate: validate, minBalance: ledgerCfg.MinimumBalance},
	}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Create users table
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		date_of_birth TIMESTAMP NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		is_blocked BOOLEAN NOT NULL DEFAULT 0,
		guardian_id TEXT REFERENCES users(id),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index on guardian references
	CREATE INDEX IF NOT EXISTS idx_users_guardian_id ON users(guardian_id);

	-- Create accounts table; balance is stored as exact decimal text
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		is_blocked BOOLEAN NOT NULL DEFAULT 0,
		creation_time TIMESTAMP NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id),
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index for owner lookups
	CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// User convenience methods

func (s *Service) StoreUser(ctx context.Context, user *models.User) error {
	return s.users.Store(ctx, user)
}

func (s *Service) UpdateUser(ctx context.Context, update models.UserUpdate) (*models.User, error) {
	return s.users.Update(ctx, update)
}

func (s *Service) GetUserById(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	return s.users.FindAll(ctx)
}

// Account convenience methods

func (s *Service) StoreAccount(ctx context.Context, account *models.Account) error {
	return s.accounts.Store(ctx, account)
}

func (s *Service) UpdateAccount(ctx context.Context, update models.AccountUpdate) (*models.Account, error) {
	return s.accounts.Update(ctx, update)
}

func (s *Service) GetAccountById(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

func (s *Service) GetAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts.FindAll(ctx)
}

func (s *Service) GetUserAccounts(ctx context.Context, userId uuid.UUID) ([]models.Account, error) {
	return s.accounts.FindByUser(ctx, userId)
}

func (s *Service) Deposit(ctx context.Context, deposit models.Deposit) (*models.Account, error) {
	return s.accounts.Deposit(ctx, deposit)
}

func (s *Service) Transfer(ctx context.Context, transfer models.Transfer) error {
	return s.accounts.Transfer(ctx, transfer)
}
