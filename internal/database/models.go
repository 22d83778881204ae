package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type User struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	Shift          pgtype.Text
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type DiningTable struct {
	ID            int32
	Capacity      int32
	Zone          string
	Status        string
	WaiterID      pgtype.UUID
	OccupiedSince pgtype.Timestamptz
	UpdatedAt     time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Price       decimal.Decimal
	IsAvailable bool
}

type Order struct {
	ID               uuid.UUID
	TableID          int32
	CustomerID       uuid.UUID
	WaiterID         pgtype.UUID
	CookID           pgtype.UUID
	Status           string
	Subtotal         decimal.Decimal
	Tip              decimal.Decimal
	Total            decimal.Decimal
	EstimatedMinutes int32
	Notes            pgtype.Text
	CancelReason     pgtype.Text
	InvoiceID        pgtype.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	LineNo      int32
	MenuItemID  uuid.UUID
	Name        string
	Quantity    int32
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	Notes       pgtype.Text
	IsCancelled bool
}

type Invoice struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	TableID       int32
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Tip           decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod pgtype.Text
	Status        string
	CancelReason  pgtype.Text
	CreatedAt     time.Time
	SentAt        pgtype.Timestamptz
	PaidAt        pgtype.Timestamptz
	CancelledAt   pgtype.Timestamptz
}

type InvoiceCancellation struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Reason      string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Tip         decimal.Decimal
	Total       decimal.Decimal
	CancelledBy uuid.UUID
	CancelledAt time.Time
}

type Notification struct {
	ID          uuid.UUID
	Seq         int64
	RecipientID pgtype.UUID
	TableID     pgtype.Int4
	Shift       pgtype.Text
	Category    string
	Title       string
	Message     string
	Payload     json.RawMessage
	Priority    string
	IsRead      bool
	CreatedAt   time.Time
	ReadAt      pgtype.Timestamptz
}

type StaffAssignment struct {
	ID         uuid.UUID
	Kind       string
	StaffID    uuid.UUID
	TableID    pgtype.Int4
	OrderID    pgtype.UUID
	IsActive   bool
	AssignedAt time.Time
	ReleasedAt pgtype.Timestamptz
}
