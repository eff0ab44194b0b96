// internal/workers/order/create-order/handler_test.go
package createorder

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, TaxRate: 5, NumberPrefix: "ORD"}
}

func createTestHandler(t *testing.T, db *sql.DB, rdb redis.Cmdable) *Handler {
	h := NewHandler(createTestConfig(), db, rdb, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h
}

func locationRows(code string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "franchise_id", "name", "code", "address", "phone", "active"}).
		AddRow("L1", "F1", "Main Street", code, "1 Main St", "", active)
}

func userRows(role models.Role, locationID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "display_name", "phone", "role", "franchise_id", "location_id", "requested_location_id", "approved", "active"}).
		AddRow("u1", "u1@example.com", "Sam", "", string(role), "F1", locationID, "", true, true)
}

func validInput() *Input {
	return &Input{
		LocationID:   "L1",
		ActingUserID: "u1",
		TableIDs:     []string{"t1", "t2", "t1"},
		Items: []models.OrderItem{
			{Name: "Veg Thali", Quantity: 2, UnitPrice: 180},
			{Name: "Sweet Lassi", Quantity: 1, UnitPrice: 70},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdb, rmock := redismock.NewClientMock()

	mock.ExpectQuery(`FROM locations WHERE id = \$1`).WithArgs("L1").WillReturnRows(locationRows("main", true))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("u1").WillReturnRows(userRows(models.RoleStaff, "L1"))
	rmock.ExpectIncr("pos:ordernum:L1:20261017").SetVal(1)
	rmock.ExpectExpire("pos:ordernum:L1:20261017", sequenceTTL).SetVal(true)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(sqlmock.AnyArg(), "MAIN-20261017-0001", "L1", "F1", "u1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), 430.0, 21.5, 451.5, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE restaurant_tables SET status = 'occupied'`).
		WithArgs(sqlmock.AnyArg(), "t1", "L1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE restaurant_tables SET status = 'occupied'`).
		WithArgs(sqlmock.AnyArg(), "t2", "L1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	h := createTestHandler(t, db, rdb)
	out, err := h.Execute(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, out.OrderID)
	assert.Equal(t, "MAIN-20261017-0001", out.OrderNumber)
	assert.Equal(t, models.StatusOpen, out.Status)
	assert.Equal(t, models.QueueStaffActive, out.OwnerQueue)
	assert.Equal(t, []string{"t1", "t2"}, out.TableIDs)
	assert.Equal(t, 430.0, out.Subtotal)
	assert.Equal(t, 21.5, out.Tax)
	assert.Equal(t, 451.5, out.Total)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestHandler_Execute_FallbackPrefix(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdb, rmock := redismock.NewClientMock()

	mock.ExpectQuery(`FROM locations`).WillReturnRows(locationRows("", true))
	mock.ExpectQuery(`FROM users`).WillReturnRows(userRows(models.RoleOwner, ""))
	rmock.ExpectIncr("pos:ordernum:L1:20261017").SetVal(42)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	h := createTestHandler(t, db, rdb)
	input := validInput()
	input.TableIDs = nil
	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20261017-0042", out.OrderNumber)
	assert.Empty(t, out.TableIDs)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_TableUnavailableRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdb, rmock := redismock.NewClientMock()

	mock.ExpectQuery(`FROM locations`).WillReturnRows(locationRows("main", true))
	mock.ExpectQuery(`FROM users`).WillReturnRows(userRows(models.RoleStaff, "L1"))
	rmock.ExpectIncr("pos:ordernum:L1:20261017").SetVal(2)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE restaurant_tables`).WithArgs(sqlmock.AnyArg(), "t1", "L1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	h := createTestHandler(t, db, rdb)
	_, err = h.Execute(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrTableUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing location", func(in *Input) { in.LocationID = "" }},
		{"missing actor", func(in *Input) { in.ActingUserID = "" }},
		{"no items", func(in *Input) { in.Items = nil }},
		{"zero quantity", func(in *Input) { in.Items[0].Quantity = 0 }},
		{"negative price", func(in *Input) { in.Items[1].UnitPrice = -1 }},
		{"blank item name", func(in *Input) { in.Items[0].Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			input := validInput()
			tt.mutate(input)
			_, err = createTestHandler(t, db, nil).Execute(context.Background(), input)
			assert.ErrorIs(t, err, ErrValidationFailed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_LookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "unknown location",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM locations`).WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrLocationNotFound,
		},
		{
			name: "inactive location",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM locations`).WillReturnRows(locationRows("main", false))
			},
			wantErr: ErrLocationNotFound,
		},
		{
			name: "staff of another location",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM locations`).WillReturnRows(locationRows("main", true))
				mock.ExpectQuery(`FROM users`).WillReturnRows(userRows(models.RoleStaff, "L9"))
			},
			wantErr: ErrUnauthorizedActor,
		},
		{
			name: "database down",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM locations`).WillReturnError(errors.New("connection refused"))
			},
			wantErr: ErrQueryExecutionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			_, err = createTestHandler(t, db, nil).Execute(context.Background(), validInput())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_SequenceUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdb, rmock := redismock.NewClientMock()

	mock.ExpectQuery(`FROM locations`).WillReturnRows(locationRows("main", true))
	mock.ExpectQuery(`FROM users`).WillReturnRows(userRows(models.RoleStaff, "L1"))
	rmock.ExpectIncr("pos:ordernum:L1:20261017").SetErr(errors.New("dial tcp: connection refused"))

	_, err = createTestHandler(t, db, rdb).Execute(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
