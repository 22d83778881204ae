package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is every query the store exposes. *Queries implements it against
// Postgres; the memory package implements it in-process.
type Querier interface {
	// users
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	ListActiveUsersByShift(ctx context.Context, arg ListActiveUsersByShiftParams) ([]User, error)
	UpdateUserShift(ctx context.Context, arg UpdateUserShiftParams) (User, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

	// tables
	GetTable(ctx context.Context, id int32) (DiningTable, error)
	GetTableForUpdate(ctx context.Context, id int32) (DiningTable, error)
	ListTables(ctx context.Context, arg ListTablesParams) ([]DiningTable, error)
	CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error)
	UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (DiningTable, error)
	SetTableWaiter(ctx context.Context, arg SetTableWaiterParams) (DiningTable, error)

	// menu
	GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error)
	CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error)
	ListMenuItems(ctx context.Context, isAvailable pgtype.Bool) ([]MenuItem, error)

	// orders
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error)
	ListActiveOrdersByTable(ctx context.Context, tableID int32) ([]Order, error)
	ListKitchenQueue(ctx context.Context) ([]Order, error)
	CountOpenOrdersByTable(ctx context.Context, tableID int32) (int64, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error)
	SetOrderCook(ctx context.Context, arg SetOrderCookParams) (Order, error)
	UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error)
	SetOrderInvoice(ctx context.Context, arg SetOrderInvoiceParams) (Order, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	CancelOrderItem(ctx context.Context, arg CancelOrderItemParams) (OrderItem, error)

	// invoices
	GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error)
	CountOpenInvoicesByTable(ctx context.Context, tableID int32) (int64, error)
	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) (Invoice, error)
	CreateInvoiceCancellation(ctx context.Context, arg CreateInvoiceCancellationParams) (InvoiceCancellation, error)
	GetInvoiceCancellation(ctx context.Context, invoiceID uuid.UUID) (InvoiceCancellation, error)

	// notifications
	CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error)
	GetNotification(ctx context.Context, id uuid.UUID) (Notification, error)
	ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error)
	DeleteReadNotifications(ctx context.Context, recipientID uuid.UUID) (int64, error)
	CountUnreadNotifications(ctx context.Context, arg CountUnreadNotificationsParams) (int64, error)
	ClaimDeferredNotifications(ctx context.Context, arg ClaimDeferredNotificationsParams) ([]Notification, error)
	DeleteDeferredNotifications(ctx context.Context, tableID int32) (int64, error)

	// staff assignments
	GetActiveTableAssignment(ctx context.Context, tableID int32) (StaffAssignment, error)
	GetActiveOrderAssignment(ctx context.Context, orderID uuid.UUID) (StaffAssignment, error)
	CreateStaffAssignment(ctx context.Context, arg CreateStaffAssignmentParams) (StaffAssignment, error)
	ReleaseTableAssignments(ctx context.Context, arg ReleaseTableAssignmentsParams) (int64, error)
	ReleaseOrderAssignments(ctx context.Context, arg ReleaseOrderAssignmentsParams) (int64, error)
	ListAssignmentsByTable(ctx context.Context, tableID int32) ([]StaffAssignment, error)
}

var _ Querier = (*Queries)(nil)
