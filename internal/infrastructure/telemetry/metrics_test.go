package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/idempotency"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ admin.Observer = (*telemetry.Metrics)(nil)

func TestMetrics_Observer(t *testing.T) {
	m := telemetry.NewMetrics("")
	endpoint := "PATCH /api/v1/admin/orders/:order_no"

	m.MutationFinished(endpoint, "OK", false, 20*time.Millisecond)
	m.MutationFinished(endpoint, "OK", true, time.Millisecond)
	m.MutationFinished(endpoint, "FORBIDDEN", false, time.Millisecond)
	m.IdempotencyOutcome(endpoint, idempotency.OutcomeCompleted)
	m.AccessDenied(identity.PermSettlementUpdate)
	m.FullViewRecorded("Order")
	m.FullViewRecorded("Order")

	reg := m.Registry()
	count, err := testutil.GatherAndCount(reg, "shop_admin_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "one series per endpoint, code and replay")

	expected := `
# HELP shop_admin_pii_full_view_total Responses that exposed unmasked personal data.
# TYPE shop_admin_pii_full_view_total counter
shop_admin_pii_full_view_total{target_type="Order"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "shop_admin_pii_full_view_total"))

	count, err = testutil.GatherAndCount(reg, "shop_admin_idempotency_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_HTTPAndHandler(t *testing.T) {
	m := telemetry.NewMetrics("test")

	m.HTTPStarted()
	m.HTTPFinished(http.MethodGet, "/api/v1/admin/orders", http.StatusOK, 5*time.Millisecond)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, m.RegisterDBStats(sqlDB, "admin"))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `test_http_requests_total{method="GET",route="/api/v1/admin/orders",status="200"} 1`)
	assert.Contains(t, body, "test_http_in_flight_requests 0")
	assert.Contains(t, body, `go_sql_open_connections{db_name="admin"}`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_SlowQuery(t *testing.T) {
	m := telemetry.NewMetrics("")
	var _ telemetry.SlowQueryObserver = m

	m.SlowQuery("idempotency_records", 300*time.Millisecond)
	m.SlowQuery("idempotency_records", time.Second)
	m.SlowQuery("", time.Second)

	expected := `
# HELP shop_admin_db_slow_queries_total SQL statements slower than the configured threshold, by table.
# TYPE shop_admin_db_slow_queries_total counter
shop_admin_db_slow_queries_total{table="idempotency_records"} 2
shop_admin_db_slow_queries_total{table="unknown"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "shop_admin_db_slow_queries_total"))
}
