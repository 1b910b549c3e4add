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
	"account-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	fromFlag := flag.String("from", "", "Source account id (required)")
	toFlag := flag.String("to", "", "Destination account id (required)")
	amountFlag := flag.String("amount", "", "Amount to transfer (required)")
	depositFlag := flag.Bool("deposit", false, "Credit -to with -amount instead of transferring")
	flag.Parse()

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		logger.Fatal("Invalid amount", zap.String("amount", *amountFlag), zap.Error(err))
	}
	toAccountId, err := uuid.Parse(*toFlag)
	if err != nil {
		logger.Fatal("Invalid destination account id", zap.String("to", *toFlag), zap.Error(err))
	}

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

	if *depositFlag {
		account, err := dbService.Deposit(ctx, models.Deposit{AccountId: toAccountId, Amount: amount})
		if err != nil {
			logger.Fatal("Deposit failed", zap.Error(err))
		}
		fmt.Printf("✓ Deposited %s into %s (new balance: %s)\n", amount, account.Id, account.Balance)
		return
	}

	fromAccountId, err := uuid.Parse(*fromFlag)
	if err != nil {
		logger.Fatal("Invalid source account id", zap.String("from", *fromFlag), zap.Error(err))
	}

	transfer := models.Transfer{
		FromAccountId: fromAccountId,
		ToAccountId:   toAccountId,
		Amount:        amount,
	}
	if err := dbService.Transfer(ctx, transfer); err != nil {
		logger.Fatal("Transfer failed", zap.Error(err))
	}

	fromAccount, err := dbService.GetAccountById(ctx, fromAccountId)
	if err != nil {
		logger.Fatal("Failed to read source account", zap.Error(err))
	}
	toAccount, err := dbService.GetAccountById(ctx, toAccountId)
	if err != nil {
		logger.Fatal("Failed to read destination account", zap.Error(err))
	}

	fmt.Printf("✓ Transferred %s\n", amount)
	fmt.Printf("  %s: %s\n", fromAccount.Id, fromAccount.Balance)
	fmt.Printf("  %s: %s\n", toAccount.Id, toAccount.Balance)
}
