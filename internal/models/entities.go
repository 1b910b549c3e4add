package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entity is implemented by every persisted record type. Values returns the
// entity's field values in canonical insert-column order.
type Entity interface {
	EntityID() uuid.UUID
	AssignID(id uuid.UUID)
	Values() []any
}

// User represents an account holder. Minors must reference an adult,
// non-blocked guardian; adults must not reference one.
type User struct {
	Id          uuid.UUID  `db:"id"`
	FirstName   string     `db:"first_name" validate:"required"`
	LastName    string     `db:"last_name" validate:"required"`
	DateOfBirth time.Time  `db:"date_of_birth" validate:"required"`
	PhoneNumber string     `db:"phone_number"`
	Blocked     bool       `db:"is_blocked"`
	GuardianId  *uuid.UUID `db:"guardian_id"`
	Version     int64      `db:"version"`
}

func (u *User) EntityID() uuid.UUID   { return u.Id }
func (u *User) AssignID(id uuid.UUID) { u.Id = id }

func (u *User) Values() []any {
	var guardianId any
	if u.GuardianId != nil {
		guardianId = u.GuardianId.String()
	}
	return []any{u.Id.String(), u.FirstName, u.LastName, u.DateOfBirth, u.PhoneNumber, u.Blocked, guardianId}
}

// Account holds a single balance owned by one user. CreationTime is assigned
// by the server when the account is stored.
type Account struct {
	Id           uuid.UUID       `db:"id"`
	Balance      decimal.Decimal `db:"balance"`
	Blocked      bool            `db:"is_blocked"`
	CreationTime time.Time       `db:"creation_time"`
	UserId       uuid.UUID       `db:"user_id" validate:"required"`
	Version      int64           `db:"version"`
}

func (a *Account) EntityID() uuid.UUID   { return a.Id }
func (a *Account) AssignID(id uuid.UUID) { a.Id = id }

func (a *Account) Values() []any {
	return []any{a.Id.String(), a.Balance.String(), a.Blocked, a.CreationTime, a.UserId.String()}
}

// Deposit is a transient command crediting a single account. It is never
// persisted itself; it mutates the account balance.
type Deposit struct {
	AccountId uuid.UUID       `validate:"required"`
	Amount    decimal.Decimal `validate:"required"`
}

// Transfer is a transient command moving funds between two accounts. Both
// balance updates are applied atomically or not at all.
type Transfer struct {
	FromAccountId uuid.UUID       `validate:"required"`
	ToAccountId   uuid.UUID       `validate:"required"`
	Amount        decimal.Decimal `validate:"required"`
}

// UserUpdate is a partial-update command. Nil fields retain the stored value.
// Blocked and GuardianId are not mutable through update.
type UserUpdate struct {
	Id          uuid.UUID
	FirstName   *string
	LastName    *string
	DateOfBirth *time.Time
	PhoneNumber *string
}

// AccountUpdate is a partial-update command. Only the blocked flag and the
// owning user are mutable; balance and creation time are not.
type AccountUpdate struct {
	Id      uuid.UUID
	Blocked *bool
	UserId  *uuid.UUID
}
