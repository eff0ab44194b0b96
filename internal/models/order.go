// internal/models/order.go
package models

import (
	"math"
	"time"
)

type OrderStatus string

const (
	StatusOpen        OrderStatus = "open"
	StatusTransferred OrderStatus = "transferred"
	StatusBilled      OrderStatus = "billed"
	StatusSettled     OrderStatus = "settled"
	StatusCancelled   OrderStatus = "cancelled"
)

// OwnerQueue is the single home queue of an order.
type OwnerQueue string

const (
	QueueStaffActive    OwnerQueue = "staff_active"
	QueueManagerPending OwnerQueue = "manager_pending"
	QueueClosed         OwnerQueue = "closed"
)

var statusQueue = map[OrderStatus]OwnerQueue{
	StatusOpen:        QueueStaffActive,
	StatusTransferred: QueueManagerPending,
	StatusBilled:      QueueManagerPending,
	StatusSettled:     QueueClosed,
	StatusCancelled:   QueueClosed,
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusOpen:        {StatusTransferred, StatusCancelled},
	StatusTransferred: {StatusBilled, StatusSettled, StatusCancelled},
	StatusBilled:      {StatusSettled},
}

func (s OrderStatus) Valid() bool {
	_, ok := statusQueue[s]
	return ok
}

// QueueForStatus returns the owner queue an order with status s must sit in.
func QueueForStatus(s OrderStatus) (OwnerQueue, bool) {
	q, ok := statusQueue[s]
	return q, ok
}

func ValidStatusTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Consistent reports whether status and queue agree.
func Consistent(s OrderStatus, q OwnerQueue) bool {
	want, ok := statusQueue[s]
	return ok && want == q
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentWallet PaymentMethod = "wallet"
	PaymentOther  PaymentMethod = "other"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentWallet, PaymentOther:
		return true
	}
	return false
}

type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

func (i OrderItem) LineTotal() float64 {
	return Round2(float64(i.Quantity) * i.UnitPrice)
}

// Customer is the contact captured when an order is handed to a manager.
type Customer struct {
	Phone         string `json:"phone,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Source        string `json:"source,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

type Order struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"orderNumber"`
	LocationID    string      `json:"locationId"`
	FranchiseID   string      `json:"franchiseId"`
	CreatedBy     string      `json:"createdBy"`
	Status        OrderStatus `json:"status"`
	OwnerQueue    OwnerQueue  `json:"ownerQueue"`
	TableIDs      []string    `json:"tableIds"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Discount      float64     `json:"discount"`
	Total         float64     `json:"total"`
	Customer      *Customer   `json:"customer,omitempty"`
	TransferNote  string      `json:"transferNote,omitempty"`
	TransferredBy string      `json:"transferredBy,omitempty"`
	TransferredAt *time.Time  `json:"transferredAt,omitempty"`
	BillNumber    string      `json:"billNumber,omitempty"`
	BilledBy      string      `json:"billedBy,omitempty"`
	BilledAt      *time.Time  `json:"billedAt,omitempty"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	SettledAt     *time.Time  `json:"settledAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Totals holds the money fields of an order, rounded to cents.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// CalculateTotals prices items at taxRate percent, before any discount.
func CalculateTotals(items []OrderItem, taxRate float64) Totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.LineTotal()
	}
	subtotal = Round2(subtotal)
	tax := Round2(subtotal * taxRate / 100)
	return Totals{Subtotal: subtotal, Tax: tax, Total: Round2(subtotal + tax)}
}

// ApplyDiscount returns t with discount taken off the total. ok is false
// when the discount is negative or exceeds subtotal plus tax.
func (t Totals) ApplyDiscount(discount float64) (Totals, bool) {
	discount = Round2(discount)
	if discount < 0 || discount > Round2(t.Subtotal+t.Tax) {
		return t, false
	}
	t.Discount = discount
	t.Total = Round2(t.Subtotal + t.Tax - discount)
	return t, true
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DistinctTableIDs drops blanks and repeats, keeping first-seen order.
func DistinctTableIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
