// internal/workers/tenant/create-location/handler_test.go
package createlocation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second, MaxTableCount: 50}, db, logger.NewTestLogger(t))
}

func actorRows(role models.Role, franchiseID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "display_name", "phone", "role", "franchise_id", "location_id", "requested_location_id", "approved", "active"}).
		AddRow("o1", "owner@example.com", "Ravi", "", string(role), franchiseID, "", "", true, true)
}

func franchiseRows(active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "owner_name", "contact_email", "contact_phone", "plan", "commission_rate", "approved", "active"}).
		AddRow("F1", "Spice Route", "Ravi", "", "", "basic", 0.0, true, active)
}

func validInput() *Input {
	return &Input{ActingUserID: "o1", FranchiseID: "F1", Name: "Main Street", Code: "main", TableCount: 2}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_OwnerCreatesLocationWithTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("o1").WillReturnRows(actorRows(models.RoleOwner, "F1"))
	mock.ExpectQuery(`FROM franchises WHERE id = \$1`).WithArgs("F1").WillReturnRows(franchiseRows(true))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO locations`).
		WithArgs(sqlmock.AnyArg(), "F1", "Main Street", "MAIN", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO restaurant_tables`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "T1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO restaurant_tables`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "T2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("location.created", "location", sqlmock.AnyArg(), "o1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	out, err := createTestHandler(t, db).Execute(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, out.LocationID)
	assert.Equal(t, "MAIN", out.Code)
	assert.True(t, out.Active)
	assert.Len(t, out.TableIDs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Input)
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name:    "code with symbols",
			mutate:  func(in *Input) { in.Code = "MA-IN" },
			setup:   func(sqlmock.Sqlmock) {},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "too many tables",
			mutate:  func(in *Input) { in.TableCount = 51 },
			setup:   func(sqlmock.Sqlmock) {},
			wantErr: ErrValidationFailed,
		},
		{
			name:   "manager cannot create locations",
			mutate: func(*Input) {},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleManager, "F1"))
			},
			wantErr: ErrUnauthorizedActor,
		},
		{
			name:   "owner of another franchise",
			mutate: func(*Input) {},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleOwner, "F2"))
			},
			wantErr: ErrUnauthorizedActor,
		},
		{
			name:   "inactive franchise",
			mutate: func(*Input) {},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleAdmin, "F1"))
				m.ExpectQuery(`FROM franchises`).WillReturnRows(franchiseRows(false))
			},
			wantErr: ErrFranchiseInactive,
		},
		{
			name:   "unknown franchise",
			mutate: func(*Input) {},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleSuperadmin, ""))
				m.ExpectQuery(`FROM franchises`).WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrFranchiseNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			input := validInput()
			tt.mutate(input)
			_, err = createTestHandler(t, db).Execute(context.Background(), input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
