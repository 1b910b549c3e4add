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
	"go.uber.org/zap"
)

// UserService enforces the guardian/minor custody rules before delegating to
// the generic persistence primitives.
type UserService struct {
	db       *sql.DB
	validate *validator.Validate
}

var userDescriptor = entityDescriptor[*models.User]{
	table:      "users",
	primaryKey: "id",
	columns:    []string{"id", "first_name", "last_name", "date_of_birth", "phone_number", "is_blocked", "guardian_id"},
	scan:       scanUser,
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var idStr string
	var guardianId sql.NullString

	err := row.Scan(&idStr, &user.FirstName, &user.LastName, &user.DateOfBirth,
		&user.PhoneNumber, &user.Blocked, &guardianId, &user.Version)
	if err != nil {
		return nil, err
	}

	user.Id, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", idStr, err)
	}

	if guardianId.Valid {
		parsed, err := uuid.Parse(guardianId.String)
		if err != nil {
			return nil, fmt.Errorf("invalid guardian id %q: %w", guardianId.String, err)
		}
		user.GuardianId = &parsed
	}

	return &user, nil
}

// Store validates custody eligibility and inserts the user. An id is assigned
// when the caller did not supply one.
func (s *UserService) Store(ctx context.Context, user *models.User) error {
	if err := storeEntity(ctx, s.db, userDescriptor, user, s.process); err != nil {
		return err
	}
	user.Version = 1

	zap.L().Info("User created",
		zap.String("user_id", user.Id.String()),
		zap.String("first_name", user.FirstName),
		zap.String("last_name", user.LastName))
	return nil
}

// process runs during store and update. Eligibility is evaluated fresh each
// time and never persisted as a flag.
func (s *UserService) process(ctx context.Context, user *models.User) error {
	if err := s.validate.Struct(user); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	if isMinor(user.DateOfBirth) {
		if user.GuardianId == nil {
			return fmt.Errorf("%w: user is a minor and must have a suitable guardian", store.ErrValidation)
		}
		// A dangling guardian id fails the same way as an ineligible one.
		eligible, err := s.isEligibleGuardian(ctx, *user.GuardianId)
		if err != nil || !eligible {
			return fmt.Errorf("%w: user is a minor and must have a suitable guardian", store.ErrValidation)
		}
		return nil
	}

	if user.GuardianId != nil {
		return fmt.Errorf("%w: adults may not have a guardian", store.ErrValidation)
	}
	return nil
}

// isEligibleGuardian requires the guardian to exist, be an adult and not be
// blocked. Only the immediate guardian is checked; no chain traversal.
func (s *UserService) isEligibleGuardian(ctx context.Context, guardianId uuid.UUID) (bool, error) {
	guardian, err := s.FindByID(ctx, guardianId)
	if err != nil {
		return false, err
	}
	return !isMinor(guardian.DateOfBirth) && !guardian.Blocked, nil
}

func isMinor(dateOfBirth time.Time) bool {
	return dateOfBirth.After(time.Now().AddDate(-18, 0, 0))
}

func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return findByID(ctx, s.db, userDescriptor, id)
}

func (s *UserService) FindAll(ctx context.Context) ([]models.User, error) {
	users, err := findAll(ctx, s.db, userDescriptor)
	if err != nil {
		return nil, err
	}

	result := make([]models.User, 0, len(users))
	for _, user := range users {
		result = append(result, *user)
	}
	return result, nil
}

// Update applies a partial update: nil fields retain the stored value. The
// merged record is re-validated against the custody rules, and the write is
// version-checked so a concurrent change surfaces as a conflict.
func (s *UserService) Update(ctx context.Context, update models.UserUpdate) (*models.User, error) {
	if err := requireExisting("user", update.Id); err != nil {
		return nil, err
	}

	current, err := s.FindByID(ctx, update.Id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if update.FirstName != nil {
		merged.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		merged.LastName = *update.LastName
	}
	if update.DateOfBirth != nil {
		merged.DateOfBirth = *update.DateOfBirth
	}
	if update.PhoneNumber != nil {
		merged.PhoneNumber = *update.PhoneNumber
	}

	if err := s.process(ctx, &merged); err != nil {
		return nil, err
	}

	fields := []fieldValue{
		{"first_name", merged.FirstName},
		{"last_name", merged.LastName},
		{"date_of_birth", merged.DateOfBirth},
		{"phone_number", merged.PhoneNumber},
	}
	if err := updateFields(ctx, s.db, userDescriptor, merged.Id, current.Version, fields); err != nil {
		return nil, err
	}
	merged.Version = current.Version + 1

	zap.L().Info("User updated", zap.String("user_id", merged.Id.String()))
	return &merged, nil
}
