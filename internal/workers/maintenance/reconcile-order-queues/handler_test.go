// internal/workers/maintenance/reconcile-order-queues/handler_test.go
package reconcileorderqueues

import (
	"context"
	"database/sql"
	"errors"
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
	return NewHandler(&Config{Timeout: 5 * time.Second, BatchSize: 100}, db, logger.NewTestLogger(t))
}

func mismatchRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "status", "owner_queue"}).
		AddRow("o1", "transferred", "staff_active").
		AddRow("o2", "settled", "manager_pending").
		AddRow("o3", "open", "manager_pending")
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_DryRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, status, owner_queue FROM orders WHERE NOT`).
		WithArgs("L1", 100).
		WillReturnRows(mismatchRows())

	out, err := createTestHandler(t, db).Execute(context.Background(), &Input{DryRun: true, LocationID: "L1"})
	require.NoError(t, err)

	assert.True(t, out.DryRun)
	assert.Equal(t, 3, out.Scanned)
	assert.Equal(t, 0, out.Repaired)
	require.Len(t, out.Mismatched, 3)
	assert.Equal(t, models.QueueManagerPending, out.Mismatched[0].Expected)
	assert.Equal(t, models.QueueClosed, out.Mismatched[1].Expected)
	assert.Equal(t, models.QueueStaffActive, out.Mismatched[2].Expected)
	assert.Empty(t, out.RepairedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Repairs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM orders WHERE NOT`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "owner_queue"}).
			AddRow("o1", "transferred", "staff_active").
			AddRow("o2", "settled", "manager_pending"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET owner_queue = \$2`).
		WithArgs("o1", "manager_pending", "transferred", "staff_active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("order.queue_repaired", "order", "o1", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// o2 changed between scan and repair.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE orders SET owner_queue = \$2`).
		WithArgs("o2", "closed", "settled", "manager_pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	out, err := createTestHandler(t, db).Execute(context.Background(), &Input{Limit: 2})
	require.NoError(t, err)

	assert.False(t, out.DryRun)
	assert.Equal(t, 2, out.Scanned)
	assert.Equal(t, 1, out.Repaired)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, []string{"o1"}, out.RepairedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UnknownStatusSkipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM orders WHERE NOT`).WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "owner_queue"}).AddRow("o9", "void", "closed"))

	out, err := createTestHandler(t, db).Execute(context.Background(), &Input{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 0, out.Repaired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_NegativeLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = createTestHandler(t, db).Execute(context.Background(), &Input{Limit: -1})
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ScanFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM orders`).WillReturnError(errors.New("connection reset by peer"))

	_, err = createTestHandler(t, db).Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrQueryExecutionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
