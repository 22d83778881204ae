package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ReportsServicer defines the coordinator methods needed by report handlers.
// Satisfied by *service.Coordinator; narrow interface for testability.
type ReportsServicer interface {
	ListInvoices(ctx context.Context, f service.InvoiceFilter) ([]database.Invoice, error)
}

// ReportsHandler handles the cashier's end-of-day reports.
type ReportsHandler struct {
	svc ReportsServicer
	loc *time.Location
}

// NewReportsHandler creates a new ReportsHandler. Days are cut at midnight
// in loc; nil means the server's local zone.
func NewReportsHandler(svc ReportsServicer, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportsHandler{svc: svc, loc: loc}
}

// RegisterRoutes registers report endpoints. Mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-close", h.DailyClose)
}

// --- Response types ---

type paymentSummaryResponse struct {
	PaymentMethod string `json:"payment_method"`
	InvoiceCount  int64  `json:"invoice_count"`
	TotalAmount   string `json:"total_amount"`
}

type hourlySalesResponse struct {
	Hour         int    `json:"hour"`
	InvoiceCount int64  `json:"invoice_count"`
	TotalAmount  string `json:"total_amount"`
}

type dailyCloseResponse struct {
	Date           string                   `json:"date"`
	PaidCount      int64                    `json:"paid_count"`
	CancelledCount int64                    `json:"cancelled_count"`
	OpenCount      int64                    `json:"open_count"`
	Subtotal       string                   `json:"subtotal"`
	Tax            string                   `json:"tax"`
	Tips           string                   `json:"tips"`
	Total          string                   `json:"total"`
	ByMethod       []paymentSummaryResponse `json:"by_method"`
	Hourly         []hourlySalesResponse    `json:"hourly"`
}

// --- Handlers ---

// DailyClose handles GET /reports/daily-close?date=YYYY-MM-DD. Totals cover
// paid invoices raised that day; cancelled and still-open invoices are only
// counted. Defaults to today.
func (h *ReportsHandler) DailyClose(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDay(r, h.loc, time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	invoices, err := h.svc.ListInvoices(r.Context(), service.InvoiceFilter{From: &from, To: &to})
	if err != nil {
		writeServiceError(w, "daily close", err)
		return
	}

	writeJSON(w, http.StatusOK, summarizeDay(from.Format(time.DateOnly), invoices, h.loc))
}

// --- Helpers ---

func summarizeDay(date string, invoices []database.Invoice, loc *time.Location) dailyCloseResponse {
	resp := dailyCloseResponse{Date: date}
	subtotal, tax, tips, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero

	type bucket struct {
		count int64
		total decimal.Decimal
	}
	methods := map[string]*bucket{}
	hours := map[int]*bucket{}

	for _, inv := range invoices {
		switch inv.Status {
		case enum.InvoiceStatusCancelled:
			resp.CancelledCount++
			continue
		case enum.InvoiceStatusPaid:
		default:
			resp.OpenCount++
			continue
		}

		resp.PaidCount++
		subtotal = subtotal.Add(inv.Subtotal)
		tax = tax.Add(inv.Tax)
		tips = tips.Add(inv.Tip)
		total = total.Add(inv.Total)

		m := methods[inv.PaymentMethod.String]
		if m == nil {
			m = &bucket{total: decimal.Zero}
			methods[inv.PaymentMethod.String] = m
		}
		m.count++
		m.total = m.total.Add(inv.Total)

		paidAt := inv.CreatedAt
		if inv.PaidAt.Valid {
			paidAt = inv.PaidAt.Time
		}
		hr := paidAt.In(loc).Hour()
		hb := hours[hr]
		if hb == nil {
			hb = &bucket{total: decimal.Zero}
			hours[hr] = hb
		}
		hb.count++
		hb.total = hb.total.Add(inv.Total)
	}

	resp.Subtotal = subtotal.StringFixed(2)
	resp.Tax = tax.StringFixed(2)
	resp.Tips = tips.StringFixed(2)
	resp.Total = total.StringFixed(2)

	resp.ByMethod = []paymentSummaryResponse{}
	for method, b := range methods {
		resp.ByMethod = append(resp.ByMethod, paymentSummaryResponse{
			PaymentMethod: method,
			InvoiceCount:  b.count,
			TotalAmount:   b.total.StringFixed(2),
		})
	}
	sort.Slice(resp.ByMethod, func(i, j int) bool {
		return resp.ByMethod[i].PaymentMethod < resp.ByMethod[j].PaymentMethod
	})

	resp.Hourly = []hourlySalesResponse{}
	for hr, b := range hours {
		resp.Hourly = append(resp.Hourly, hourlySalesResponse{
			Hour:         hr,
			InvoiceCount: b.count,
			TotalAmount:  b.total.StringFixed(2),
		})
	}
	sort.Slice(resp.Hourly, func(i, j int) bool { return resp.Hourly[i].Hour < resp.Hourly[j].Hour })

	return resp
}

// parseDay parses the date query param in loc and returns the day as
// [midnight, next midnight).
func parseDay(r *http.Request, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	now = now.In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid date, expected YYYY-MM-DD")
		}
		day = t
	}

	return day, day.AddDate(0, 0, 1), nil
}
