package enum

import "time"

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	TableStatusFree            = "free"
	TableStatusOccupied        = "occupied"
	TableStatusHasOrder        = "has_order"
	TableStatusAwaitingPayment = "awaiting_payment"
)

const (
	OrderStatusPending       = "pending"
	OrderStatusInPreparation = "in_preparation"
	OrderStatusReady         = "ready"
	OrderStatusDelivered     = "delivered"
	OrderStatusCancelled     = "cancelled"
)

const (
	InvoiceStatusPending         = "pending"
	InvoiceStatusAwaitingCashier = "awaiting_cashier"
	InvoiceStatusPaid            = "paid"
	InvoiceStatusCancelled       = "cancelled"
)

const (
	AssignmentKindTable = "table"
	AssignmentKindOrder = "order"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	RoleCustomer = "customer"
	RoleWaiter   = "waiter"
	RoleCashier  = "cashier"
	RoleKitchen  = "kitchen"
	RoleAdmin    = "admin"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
	PaymentMethodQR   = "qr"
)

const (
	NotificationNewOrder             = "new_order"
	NotificationCustomerRequestsBill = "customer_requests_bill"
	NotificationOrderReady           = "order_ready"
	NotificationNewReservation       = "new_reservation"
	NotificationGeneralAlert         = "general_alert"
)

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	ZoneIndoor  = "indoor"
	ZoneTerrace = "terrace"
	ZoneGarden  = "garden"
)

const (
	ShiftMorning = "morning"
	ShiftEvening = "evening"
)

// Kitchen wait priority. Derived at read time, never stored.
const (
	WaitPriorityLow    = "low"
	WaitPriorityMedium = "medium"
	WaitPriorityHigh   = "high"
)

// ShiftAt returns the shift running at t. changeHour is the local hour at
// which the evening shift takes over.
func ShiftAt(t time.Time, changeHour int) string {
	if t.Hour() < changeHour {
		return ShiftMorning
	}
	return ShiftEvening
}

func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func IsTerminalInvoiceStatus(s string) bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodQR:
		return true
	}
	return false
}

func IsValidRole(s string) bool {
	switch s {
	case RoleCustomer, RoleWaiter, RoleCashier, RoleKitchen, RoleAdmin:
		return true
	}
	return false
}

func IsValidZone(s string) bool {
	switch s {
	case ZoneIndoor, ZoneTerrace, ZoneGarden:
		return true
	}
	return false
}

func IsValidCategory(s string) bool {
	switch s {
	case NotificationNewOrder, NotificationCustomerRequestsBill, NotificationOrderReady,
		NotificationNewReservation, NotificationGeneralAlert:
		return true
	}
	return false
}

func IsValidPriority(s string) bool {
	switch s {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
