// internal/models/models_test.go
package models

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidStatusTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusOpen, StatusTransferred, true},
		{StatusOpen, StatusCancelled, true},
		{StatusTransferred, StatusBilled, true},
		{StatusTransferred, StatusSettled, true},
		{StatusTransferred, StatusCancelled, true},
		{StatusBilled, StatusSettled, true},
		{StatusOpen, StatusBilled, false},
		{StatusOpen, StatusSettled, false},
		{StatusBilled, StatusCancelled, false},
		{StatusSettled, StatusOpen, false},
		{StatusCancelled, StatusOpen, false},
		{StatusTransferred, StatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, ValidStatusTransition(tt.from, tt.to))
		})
	}
}

func TestQueueForStatus(t *testing.T) {
	tests := map[OrderStatus]OwnerQueue{
		StatusOpen:        QueueStaffActive,
		StatusTransferred: QueueManagerPending,
		StatusBilled:      QueueManagerPending,
		StatusSettled:     QueueClosed,
		StatusCancelled:   QueueClosed,
	}
	for s, want := range tests {
		q, ok := QueueForStatus(s)
		assert.True(t, ok)
		assert.Equal(t, want, q, s)
		assert.True(t, Consistent(s, want))
	}

	_, ok := QueueForStatus("pending")
	assert.False(t, ok)
	assert.False(t, Consistent(StatusTransferred, QueueStaffActive))
}

func TestCalculateTotals(t *testing.T) {
	items := []OrderItem{
		{Name: "Paneer Tikka", Quantity: 2, UnitPrice: 249.50},
		{Name: "Lassi", Quantity: 3, UnitPrice: 60},
	}
	totals := CalculateTotals(items, 5)
	assert.Equal(t, 679.0, totals.Subtotal)
	assert.Equal(t, 33.95, totals.Tax)
	assert.Equal(t, 712.95, totals.Total)

	discounted, ok := totals.ApplyDiscount(12.95)
	require.True(t, ok)
	assert.Equal(t, 12.95, discounted.Discount)
	assert.Equal(t, 700.0, discounted.Total)

	_, ok = totals.ApplyDiscount(712.96)
	assert.False(t, ok)
	_, ok = totals.ApplyDiscount(-1)
	assert.False(t, ok)
}

func TestDistinctTableIDs(t *testing.T) {
	assert.Equal(t, []string{"t1", "t2", "t3"}, DistinctTableIDs([]string{"t1", "t2", "", "t1", "t3", "t2"}))
	assert.Empty(t, DistinctTableIDs(nil))
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, PaymentUPI.Valid())
	assert.False(t, PaymentMethod("cheque").Valid())
}

func TestUserCanOperateAt(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{"staff at location", User{Role: RoleStaff, LocationID: "L1", FranchiseID: "F1", Active: true, Approved: true}, true},
		{"staff elsewhere", User{Role: RoleStaff, LocationID: "L2", FranchiseID: "F1", Active: true, Approved: true}, false},
		{"owner of franchise", User{Role: RoleOwner, FranchiseID: "F1", Active: true, Approved: true}, true},
		{"owner of another franchise", User{Role: RoleOwner, FranchiseID: "F2", Active: true, Approved: true}, false},
		{"superadmin", User{Role: RoleSuperadmin, Active: true, Approved: true}, true},
		{"inactive manager", User{Role: RoleManager, LocationID: "L1", FranchiseID: "F1", Approved: true}, false},
		{"unapproved staff", User{Role: RoleStaff, LocationID: "L1", FranchiseID: "F1", Active: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := tt.user.CanOperateAt("F1", "L1")
			assert.Equal(t, tt.want, ok)
			if !ok {
				assert.NotEmpty(t, reason)
			}
		})
	}

	staff := &User{Role: RoleStaff, LocationID: "L1", FranchiseID: "F1", Active: true, Approved: true}
	ok, _ := staff.CanBillAt("F1", "L1")
	assert.False(t, ok)
}

func TestCanApprove(t *testing.T) {
	staff := &User{ID: "u1", Role: RoleStaff, FranchiseID: "F1"}
	manager := &User{ID: "u2", Role: RoleManager, FranchiseID: "F1"}

	tests := []struct {
		name     string
		approver User
		target   *User
		location string
		want     bool
	}{
		{"owner approves staff", User{ID: "a", Role: RoleOwner, FranchiseID: "F1", Active: true, Approved: true}, staff, "L1", true},
		{"admin approves manager", User{ID: "a", Role: RoleAdmin, FranchiseID: "F1", Active: true, Approved: true}, manager, "L1", true},
		{"owner of other franchise", User{ID: "a", Role: RoleOwner, FranchiseID: "F2", Active: true, Approved: true}, staff, "L1", false},
		{"manager approves staff at own location", User{ID: "a", Role: RoleManager, FranchiseID: "F1", LocationID: "L1", Active: true, Approved: true}, staff, "L1", true},
		{"manager approves staff elsewhere", User{ID: "a", Role: RoleManager, FranchiseID: "F1", LocationID: "L2", Active: true, Approved: true}, staff, "L1", false},
		{"manager approves manager", User{ID: "a", Role: RoleManager, FranchiseID: "F1", LocationID: "L1", Active: true, Approved: true}, manager, "L1", false},
		{"staff cannot approve", User{ID: "a", Role: RoleStaff, FranchiseID: "F1", LocationID: "L1", Active: true, Approved: true}, staff, "L1", false},
		{"inactive owner", User{ID: "a", Role: RoleOwner, FranchiseID: "F1", Approved: true}, staff, "L1", false},
		{"self approval", User{ID: "u1", Role: RoleSuperadmin, Active: true, Approved: true}, staff, "L1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := CanApprove(&tt.approver, tt.target, tt.location)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCanGrant(t *testing.T) {
	assert.True(t, CanGrant(RoleSuperadmin, RoleAdmin))
	assert.False(t, CanGrant(RoleSuperadmin, RoleSuperadmin))
	assert.True(t, CanGrant(RoleAdmin, RoleOwner))
	assert.False(t, CanGrant(RoleAdmin, RoleAdmin))
	assert.True(t, CanGrant(RoleOwner, RoleManager))
	assert.False(t, CanGrant(RoleOwner, RoleOwner))
	assert.True(t, CanGrant(RoleManager, RoleStaff))
	assert.False(t, CanGrant(RoleManager, RoleManager))
	assert.False(t, CanGrant(RoleStaff, RoleStaff))
}

func TestGetUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "phone", "role", "franchise_id", "location_id", "requested_location_id", "approved", "active"}).
			AddRow("u1", "s@example.com", "Sam", "", "staff", "F1", "L1", "", true, true))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	u, err := GetUser(context.Background(), db, "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, u.Role)
	assert.Equal(t, "L1", u.LocationID)
	assert.True(t, u.Enabled())

	_, err = GetUser(context.Background(), db, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("order.transferred", "order", "o1", "u1", `{"from":"open"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = WriteAudit(context.Background(), db, AuditEvent{
		EventType:    "order.transferred",
		ResourceType: "order",
		ResourceID:   "o1",
		ActorID:      "u1",
		Details:      map[string]interface{}{"from": "open"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
