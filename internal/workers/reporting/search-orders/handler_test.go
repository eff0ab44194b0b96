// internal/workers/reporting/search-orders/handler_test.go
package searchorders

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos-workers/internal/common/logger"
	"pos-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, db *sql.DB, es *elasticsearch.Client) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second, SalesIndex: "pos-sales", DefaultPageSize: 20, MaxPageSize: 100}, db, es, logger.NewTestLogger(t))
}

func newFakeElasticsearch(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return es
}

func actorRows(role models.Role, locationID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "display_name", "phone", "role", "franchise_id", "location_id", "requested_location_id", "approved", "active"}).
		AddRow("a1", "a@example.com", "Ann", "", string(role), "F1", locationID, "", true, true)
}

const searchResponse = `{
  "took": 3,
  "hits": {
    "total": {"value": 42, "relation": "eq"},
    "hits": [
      {"_id": "o1", "_score": null, "_source": {"orderId": "o1", "orderNumber": "MAIN-20261017-0007", "franchiseId": "F1", "locationId": "L1", "paymentMethod": "upi", "total": 210, "settledAt": "2026-10-17T14:00:00Z"}},
      {"_id": "o2", "_score": null, "_source": {"orderId": "o2", "orderNumber": "MAIN-20261017-0006", "franchiseId": "F1", "locationId": "L1", "paymentMethod": "card", "total": 95.5, "settledAt": "2026-10-17T13:00:00Z"}}
    ]
  }
}`

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var captured map[string]interface{}
	var path string
	es := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(searchResponse))
	})

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("a1").WillReturnRows(actorRows(models.RoleManager, "L1"))

	out, err := createTestHandler(t, db, es).Execute(context.Background(), &Input{
		ActingUserID:      "a1",
		FranchiseID:       "F1",
		OrderNumberPrefix: "main-2026",
		Size:              500,
	})
	require.NoError(t, err)

	assert.Equal(t, "/pos-sales/_search", path)
	assert.Equal(t, int64(42), out.Total)
	assert.Equal(t, 100, out.Size)
	require.Len(t, out.Orders, 2)
	assert.Equal(t, "MAIN-20261017-0007", out.Orders[0].OrderNumber)
	assert.Equal(t, 95.5, out.Orders[1].Total)

	assert.Equal(t, float64(100), captured["size"])
	filters := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	require.Len(t, filters, 3)
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"locationId": "L1"}}, filters[1])
	assert.Equal(t, map[string]interface{}{"prefix": map[string]interface{}{"orderNumber": "MAIN-2026"}}, filters[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildQuery_AllFilters(t *testing.T) {
	q := buildQuery(&Input{
		FranchiseID:   "F1",
		LocationID:    "L2",
		CustomerPhone: " +919800000001 ",
		PaymentMethod: "cash",
	}, 20, 10)

	assert.Equal(t, 20, q["from"])
	assert.Equal(t, 10, q["size"])
	filters := q["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	require.Len(t, filters, 4)
	assert.Equal(t, term("customerPhone", "+919800000001"), filters[2])
	assert.Equal(t, term("paymentMethod", "cash"), filters[3])
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_IndexNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	es := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	})
	mock.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleOwner, ""))

	_, err = createTestHandler(t, db, es).Execute(context.Background(), &Input{ActingUserID: "a1", FranchiseID: "F1"})
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SearchFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	es := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"parsing_exception"},"status":400}`))
	})
	mock.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleOwner, ""))

	_, err = createTestHandler(t, db, es).Execute(context.Background(), &Input{ActingUserID: "a1", FranchiseID: "F1"})
	assert.ErrorIs(t, err, ErrSearchQueryFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_RejectedBeforeSearch(t *testing.T) {
	es := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected search request %s", r.URL.Path)
	})

	tests := []struct {
		name    string
		input   *Input
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{"missing franchise", &Input{ActingUserID: "a1"}, func(sqlmock.Sqlmock) {}, ErrValidationFailed},
		{"negative offset", &Input{ActingUserID: "a1", FranchiseID: "F1", From: -1}, func(sqlmock.Sqlmock) {}, ErrValidationFailed},
		{"unknown payment method", &Input{ActingUserID: "a1", FranchiseID: "F1", PaymentMethod: "barter"}, func(sqlmock.Sqlmock) {}, ErrValidationFailed},
		{
			name:  "staff",
			input: &Input{ActingUserID: "a1", FranchiseID: "F1", LocationID: "L1"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleStaff, "L1"))
			},
			wantErr: ErrUnauthorizedActor,
		},
		{
			name:  "other franchise",
			input: &Input{ActingUserID: "a1", FranchiseID: "F9"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users`).WillReturnRows(actorRows(models.RoleOwner, ""))
			},
			wantErr: ErrUnauthorizedActor,
		},
		{
			name:  "unknown actor",
			input: &Input{ActingUserID: "a1", FranchiseID: "F1"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM users`).WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			_, err = createTestHandler(t, db, es).Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
