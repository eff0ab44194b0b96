// internal/workers/tenant/create-franchise/handler_test.go
package createfranchise

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
	return NewHandler(&Config{Timeout: 5 * time.Second}, db, logger.NewTestLogger(t))
}

func actorRows(role models.Role) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "display_name", "phone", "role", "franchise_id", "location_id", "requested_location_id", "approved", "active"}).
		AddRow("s1", "root@example.com", "Root", "", string(role), "", "", "", true, true)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("s1").WillReturnRows(actorRows(models.RoleSuperadmin))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO franchises`).
		WithArgs(sqlmock.AnyArg(), "Spice Route", "Ravi", "ravi@example.com", "", "basic", 7.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("franchise.created", "franchise", sqlmock.AnyArg(), "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	out, err := createTestHandler(t, db).Execute(context.Background(), &Input{
		ActingUserID:   "s1",
		Name:           " Spice Route ",
		OwnerName:      "Ravi",
		ContactEmail:   "Ravi@Example.com",
		CommissionRate: 7.5,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.FranchiseID)
	assert.Equal(t, "Spice Route", out.Name)
	assert.Equal(t, models.PlanBasic, out.Plan)
	assert.True(t, out.Approved)
	assert.True(t, out.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"missing name", &Input{ActingUserID: "s1"}},
		{"unknown plan", &Input{ActingUserID: "s1", Name: "X", Plan: "platinum"}},
		{"commission above 100", &Input{ActingUserID: "s1", Name: "X", CommissionRate: 100.5}},
		{"negative commission", &Input{ActingUserID: "s1", Name: "X", CommissionRate: -1}},
		{"bad contact email", &Input{ActingUserID: "s1", Name: "X", ContactEmail: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			_, err = createTestHandler(t, db).Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_OnlySuperadmin(t *testing.T) {
	for _, role := range []models.Role{models.RoleAdmin, models.RoleOwner, models.RoleManager} {
		t.Run(string(role), func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`FROM users`).WillReturnRows(actorRows(role))

			_, err = createTestHandler(t, db).Execute(context.Background(), &Input{ActingUserID: "s1", Name: "X"})
			assert.ErrorIs(t, err, ErrUnauthorizedActor)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
