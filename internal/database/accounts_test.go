package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"account-ledger-go/internal/models"
	"account-ledger-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func TestStoreAccount_Success(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Owen")

	clientSupplied := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	account := &models.Account{
		Balance:      decimal.NewFromInt(3000),
		CreationTime: clientSupplied,
		UserId:       user.Id,
	}
	before := time.Now().UTC().Add(-time.Minute)
	if err := service.StoreAccount(ctx, account); err != nil {
		t.Fatalf("StoreAccount failed: %v", err)
	}

	stored, err := service.GetAccountById(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !stored.Balance.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected balance 3000, got %s", stored.Balance)
	}
	if stored.UserId != user.Id {
		t.Errorf("Expected owner %s, got %s", user.Id, stored.UserId)
	}
	// The creation time is server-assigned; the client value is discarded.
	if stored.CreationTime.Equal(clientSupplied) || stored.CreationTime.Before(before) {
		t.Errorf("Expected server-assigned creation time, got %s", stored.CreationTime)
	}
}

func TestStoreAccount_BelowFloor_Fails(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Owen")

	account := &models.Account{
		Balance: decimal.NewFromInt(2999),
		UserId:  user.Id,
	}
	err := service.StoreAccount(ctx, account)
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

func TestStoreAccount_UnknownUser_Fails(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	account := &models.Account{
		Balance: decimal.NewFromInt(5000),
		UserId:  uuid.New(),
	}
	err := service.StoreAccount(context.Background(), account)
	if !errors.Is(err, store.ErrPersistence) {
		t.Errorf("Expected persistence error from broken owner reference, got: %v", err)
	}
}

func TestGetAccountById_NotFound(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.GetAccountById(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestUpdateAccount_BlockedAndOwner(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestAdult(t, service, "Owen")
	newOwner := createTestAdult(t, service, "Nora")
	account := createTestAccount(t, service, owner.Id, "5000")

	blocked := true
	updated, err := service.UpdateAccount(ctx, models.AccountUpdate{
		Id:      account.Id,
		Blocked: &blocked,
		UserId:  &newOwner.Id,
	})
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if !updated.Blocked {
		t.Error("Expected account to be blocked")
	}
	if updated.UserId != newOwner.Id {
		t.Errorf("Expected owner %s, got %s", newOwner.Id, updated.UserId)
	}

	stored, err := service.GetAccountById(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	// Balance is immutable through update.
	if !stored.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected balance 5000, got %s", stored.Balance)
	}
}

func TestUpdateAccount_UnsetId(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	blocked := true
	_, err := service.UpdateAccount(context.Background(), models.AccountUpdate{Blocked: &blocked})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

func TestDeposit_ExactDecimalArithmetic(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Dana")
	account := createTestAccount(t, service, user.Id, "3000.00")

	amount, _ := decimal.NewFromString("200.00")
	updated, err := service.Deposit(ctx, models.Deposit{AccountId: account.Id, Amount: amount})
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	expected, _ := decimal.NewFromString("3200.00")
	if !updated.Balance.Equal(expected) {
		t.Errorf("Expected balance %s, got %s", expected, updated.Balance)
	}

	stored, err := service.GetAccountById(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !stored.Balance.Equal(expected) {
		t.Errorf("Expected stored balance %s, got %s", expected, stored.Balance)
	}
}

func TestDeposit_BlockedAccount(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Dana")
	account := createTestAccount(t, service, user.Id, "5000")

	blocked := true
	if _, err := service.UpdateAccount(ctx, models.AccountUpdate{Id: account.Id, Blocked: &blocked}); err != nil {
		t.Fatalf("Failed to block account: %v", err)
	}

	_, err := service.Deposit(ctx, models.Deposit{AccountId: account.Id, Amount: decimal.NewFromInt(200)})
	if !errors.Is(err, store.ErrBlockedAccount) {
		t.Errorf("Expected blocked-account error, got: %v", err)
	}

	stored, err := service.GetAccountById(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !stored.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected balance unchanged at 5000, got %s", stored.Balance)
	}
}

func TestDeposit_NonPositiveAmount(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Dana")
	account := createTestAccount(t, service, user.Id, "5000")

	_, err := service.Deposit(ctx, models.Deposit{AccountId: account.Id, Amount: decimal.NewFromInt(-10)})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

func TestDeposit_UnknownAccount(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Deposit(context.Background(), models.Deposit{
		AccountId: uuid.New(),
		Amount:    decimal.NewFromInt(200),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestTransfer_Success(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Tara")
	fromAccount := createTestAccount(t, service, user.Id, "5000")
	toAccount := createTestAccount(t, service, user.Id, "5000")

	err := service.Transfer(ctx, models.Transfer{
		FromAccountId: fromAccount.Id,
		ToAccountId:   toAccount.Id,
		Amount:        decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	from, err := service.GetAccountById(ctx, fromAccount.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	to, err := service.GetAccountById(ctx, toAccount.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}

	if !from.Balance.Equal(decimal.NewFromInt(4800)) {
		t.Errorf("Expected source balance 4800, got %s", from.Balance)
	}
	if !to.Balance.Equal(decimal.NewFromInt(5200)) {
		t.Errorf("Expected destination balance 5200, got %s", to.Balance)
	}
}

func TestTransfer_BelowFloor_RejectedBeforeMutation(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Tara")
	fromAccount := createTestAccount(t, service, user.Id, "3000")
	toAccount := createTestAccount(t, service, user.Id, "5000")

	err := service.Transfer(ctx, models.Transfer{
		FromAccountId: fromAccount.Id,
		ToAccountId:   toAccount.Id,
		Amount:        decimal.NewFromInt(200),
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("Expected insufficient-balance error, got: %v", err)
	}

	from, err := service.GetAccountById(ctx, fromAccount.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	to, err := service.GetAccountById(ctx, toAccount.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !from.Balance.Equal(decimal.NewFromInt(3000)) || !to.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected balances unchanged, got %s and %s", from.Balance, to.Balance)
	}
}

func TestTransfer_BlockedAccountCheckedBeforeFloor(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Tara")
	fromAccount := createTestAccount(t, service, user.Id, "3000")
	toAccount := createTestAccount(t, service, user.Id, "5000")

	blocked := true
	if _, err := service.UpdateAccount(ctx, models.AccountUpdate{Id: fromAccount.Id, Blocked: &blocked}); err != nil {
		t.Fatalf("Failed to block account: %v", err)
	}

	// Both rejections apply; the blocked check wins deterministically.
	err := service.Transfer(ctx, models.Transfer{
		FromAccountId: fromAccount.Id,
		ToAccountId:   toAccount.Id,
		Amount:        decimal.NewFromInt(200),
	})
	if !errors.Is(err, store.ErrBlockedAccount) {
		t.Errorf("Expected blocked-account error, got: %v", err)
	}
}

func TestTransfer_BlockedDestination(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Tara")
	fromAccount := createTestAccount(t, service, user.Id, "5000")
	toAccount := createTestAccount(t, service, user.Id, "5000")

	blocked := true
	if _, err := service.UpdateAccount(ctx, models.AccountUpdate{Id: toAccount.Id, Blocked: &blocked}); err != nil {
		t.Fatalf("Failed to block account: %v", err)
	}

	err := service.Transfer(ctx, models.Transfer{
		FromAccountId: fromAccount.Id,
		ToAccountId:   toAccount.Id,
		Amount:        decimal.NewFromInt(200),
	})
	if !errors.Is(err, store.ErrBlockedAccount) {
		t.Errorf("Expected blocked-account error, got: %v", err)
	}

	from, err := service.GetAccountById(ctx, fromAccount.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !from.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected source balance unchanged at 5000, got %s", from.Balance)
	}
}

func TestTransfer_UnknownAccount(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Tara")
	fromAccount := createTestAccount(t, service, user.Id, "5000")

	err := service.Transfer(ctx, models.Transfer{
		FromAccountId: fromAccount.Id,
		ToAccountId:   uuid.New(),
		Amount:        decimal.NewFromInt(200),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestTransfer_ConcurrentDebitsNoLostUpdate(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestAdult(t, service, "Tara")
	fromAccount := createTestAccount(t, service, user.Id, "5000")
	firstTarget := createTestAccount(t, service, user.Id, "5000")
	secondTarget := createTestAccount(t, service, user.Id, "5000")

	// Each debit of 1200 keeps the source above the 3000 floor on its own
	// (5000 - 1200 = 3800); together they would breach it (2600).
	amount := decimal.NewFromInt(1200)

	var group errgroup.Group
	results := make([]error, 2)
	targets := []uuid.UUID{firstTarget.Id, secondTarget.Id}
	for i := range targets {
		i := i
		group.Go(func() error {
			results[i] = service.Transfer(ctx, models.Transfer{
				FromAccountId: fromAccount.Id,
				ToAccountId:   targets[i],
				Amount:        amount,
			})
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("errgroup failed: %v", err)
	}

	var failures int
	for _, err := range results {
		if err == nil {
			continue
		}
		failures++
		if !errors.Is(err, store.ErrInsufficientBalance) && !errors.Is(err, store.ErrConcurrentModification) {
			t.Errorf("Unexpected failure kind: %v", err)
		}
	}
	if failures != 1 {
		t.Fatalf("Expected exactly one transfer to fail, got %d failures", failures)
	}

	from, err := service.GetAccountById(ctx, fromAccount.Id)
	if err != nil {
		t.Fatalf("GetAccountById failed: %v", err)
	}
	if !from.Balance.Equal(decimal.NewFromInt(3800)) {
		t.Errorf("Expected source balance 3800 after one applied debit, got %s", from.Balance)
	}
}
