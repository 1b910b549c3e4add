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
	"time"

	"account-ledger-go/internal/common"
	"account-ledger-go/internal/config"
	"account-ledger-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateOfBirthLayout = "2006-01-02"

func validateName(name, label string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", label)
	}
	if len(name) < 2 {
		return fmt.Errorf("%s must be at least 2 characters", label)
	}
	return nil
}

func parseGuardianId(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	guardianId, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid guardian id %q: %w", value, err)
	}
	return &guardianId, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	firstNameFlag := flag.String("first", "", "First name (required)")
	lastNameFlag := flag.String("last", "", "Last name (required)")
	dobFlag := flag.String("dob", "", "Date of birth as YYYY-MM-DD (required)")
	phoneFlag := flag.String("phone", "", "Phone number (optional)")
	guardianFlag := flag.String("guardian", "", "Guardian user id (required for minors)")
	flag.Parse()

	if err := validateName(*firstNameFlag, "first name"); err != nil {
		logger.Fatal("Invalid input", zap.Error(err))
	}
	if err := validateName(*lastNameFlag, "last name"); err != nil {
		logger.Fatal("Invalid input", zap.Error(err))
	}
	dateOfBirth, err := time.Parse(dateOfBirthLayout, *dobFlag)
	if err != nil {
		logger.Fatal("Invalid date of birth", zap.String("dob", *dobFlag), zap.Error(err))
	}
	guardianId, err := parseGuardianId(*guardianFlag)
	if err != nil {
		logger.Fatal("Invalid input", zap.Error(err))
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

	user := &models.User{
		FirstName:   *firstNameFlag,
		LastName:    *lastNameFlag,
		DateOfBirth: dateOfBirth,
		PhoneNumber: *phoneFlag,
		GuardianId:  guardianId,
	}
	if err := dbService.StoreUser(ctx, user); err != nil {
		logger.Fatal("Failed to create user", zap.Error(err))
	}

	fmt.Printf("✓ User created: %s %s\n", user.FirstName, user.LastName)
	fmt.Printf("  ID: %s\n", user.Id)
	if user.GuardianId != nil {
		fmt.Printf("  Guardian: %s\n", user.GuardianId)
	}

	logger.Info("User creation completed", zap.String("user_id", user.Id.String()))
}
