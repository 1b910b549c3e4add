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
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalAccounts     int
	usersWithAccounts int
}

func printAccount(account models.Account, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	status := "open"
	if account.Blocked {
		status = "blocked"
	}

	fmt.Printf("%s %s: %20s (%s, v%d, opened: %s)\n",
		symbol,
		account.Id,
		account.Balance.String(),
		status,
		account.Version,
		account.CreationTime.Format("2006-01-02 15:04:05"))
}

func printUserHeader(user models.User, accountCount int) {
	fmt.Printf("\n┌─ User: %s %s\n", user.FirstName, user.LastName)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Accounts: %d\n", accountCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user models.User, dbService *database.Service) (int, error) {
	accounts, err := dbService.GetUserAccounts(ctx, user.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get accounts: %w", err)
	}

	if len(accounts) == 0 {
		return 0, nil
	}

	printUserHeader(user, len(accounts))
	for i, account := range accounts {
		printAccount(account, i == len(accounts)-1)
	}

	return len(accounts), nil
}

func processUsersAndGenerateReport(ctx context.Context, users []models.User, dbService *database.Service, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		accountCount, err := processUser(ctx, user, dbService)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id.String()),
				zap.Error(err))
			continue
		}

		if accountCount > 0 {
			stats.usersWithAccounts++
			stats.totalAccounts += accountCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	userFlag := flag.String("user", "", "Filter by specific user id (optional)")
	flag.Parse()

	logger.Info("Starting balance report")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeService(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var users []models.User
	if *userFlag != "" {
		userId, err := uuid.Parse(*userFlag)
		if err != nil {
			logger.Fatal("Invalid user id", zap.String("user", *userFlag), zap.Error(err))
		}
		user, err := dbService.GetUserById(ctx, userId)
		if err != nil {
			logger.Fatal("Failed to find user", zap.String("user_id", userId.String()), zap.Error(err))
		}
		users = []models.User{*user}
	} else {
		users, err = dbService.GetUsers(ctx)
		if err != nil {
			logger.Fatal("Failed to list users", zap.Error(err))
		}
	}

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, dbService, logger)

	summary := fmt.Sprintf("SUMMARY: %d users with accounts (%d accounts across %d users queried)",
		stats.usersWithAccounts, stats.totalAccounts, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_accounts", stats.usersWithAccounts),
		zap.Int("total_accounts", stats.totalAccounts))
}
