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

package main

import (
	"context"
	"flag"
	"fmt"

	"account-ledger-go/internal/common"
	"account-ledger-go/internal/config"
	"account-ledger-go/internal/database"
	"account-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func seedUser(ctx context.Context, dbService *database.Service, seed common.SeedUser, createdByName map[string]uuid.UUID) (*models.User, error) {
	dateOfBirth, err := common.ParseSeedDate(seed.DateOfBirth)
	if err != nil {
		return nil, err
	}

	var guardianId *uuid.UUID
	if seed.Guardian != "" {
		id, ok := createdByName[seed.Guardian]
		if !ok {
			return nil, fmt.Errorf("guardian %q not defined earlier in the seed file", seed.Guardian)
		}
		guardianId = &id
	}

	user := &models.User{
		FirstName:   seed.FirstName,
		LastName:    seed.LastName,
		DateOfBirth: dateOfBirth,
		PhoneNumber: seed.PhoneNumber,
		GuardianId:  guardianId,
	}
	if err := dbService.StoreUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func seedAccounts(ctx context.Context, dbService *database.Service, userId uuid.UUID, seeds []common.SeedAccount) (int, error) {
	created := 0
	for _, seed := range seeds {
		balance, err := decimal.NewFromString(seed.Balance)
		if err != nil {
			return created, fmt.Errorf("invalid balance %q: %w", seed.Balance, err)
		}

		account := &models.Account{
			Balance: balance,
			UserId:  userId,
		}
		if err := dbService.StoreAccount(ctx, account); err != nil {
			return created, err
		}
		created++

		if seed.Blocked {
			blocked := true
			if _, err := dbService.UpdateAccount(ctx, models.AccountUpdate{Id: account.Id, Blocked: &blocked}); err != nil {
				return created, err
			}
		}
	}
	return created, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	fileFlag := flag.String("file", "", "Seed file path (defaults to SEED_FILE)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	seedFile := cfg.Ledger.SeedFile
	if *fileFlag != "" {
		seedFile = *fileFlag
	}

	seedConfig, err := common.LoadSeedConfig(seedFile)
	if err != nil {
		logger.Fatal("Failed to load seed file", zap.String("file", seedFile), zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeService(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	// Adults come before their wards in the file, so one pass suffices.
	createdByName := make(map[string]uuid.UUID)
	totalUsers, totalAccounts := 0, 0
	for _, seed := range seedConfig.Users {
		user, err := seedUser(ctx, dbService, seed, createdByName)
		if err != nil {
			logger.Fatal("Failed to seed user",
				zap.String("first_name", seed.FirstName),
				zap.String("last_name", seed.LastName),
				zap.Error(err))
		}
		createdByName[seed.FirstName+" "+seed.LastName] = user.Id
		totalUsers++

		accountCount, err := seedAccounts(ctx, dbService, user.Id, seed.Accounts)
		totalAccounts += accountCount
		if err != nil {
			logger.Fatal("Failed to seed accounts",
				zap.String("user_id", user.Id.String()),
				zap.Error(err))
		}

		fmt.Printf("✓ %s %s (%d accounts)\n", user.FirstName, user.LastName, accountCount)
	}

	logger.Info("Seeding completed",
		zap.String("file", seedFile),
		zap.Int("users", totalUsers),
		zap.Int("accounts", totalAccounts))
}
