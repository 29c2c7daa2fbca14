package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findFamily は指定名のメトリクスファミリーを返す。
func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue は指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordOperation_CountsByOperationAndOutcome は操作と結果のラベル別に集計されることを検証する。
func TestRecordOperation_CountsByOperationAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperation("login", OutcomeSuccess)
	c.RecordOperation("login", OutcomeSuccess)
	c.RecordOperation("login", OutcomeFailure)
	c.RecordOperation("register", OutcomeSuccess)

	mf := findFamily(t, reg, "gatehouse_account_operations_total")
	if len(mf.GetMetric()) != 3 {
		t.Fatalf("expected 3 label combinations, got %d", len(mf.GetMetric()))
	}

	for _, m := range mf.GetMetric() {
		op := labelValue(m, "operation")
		outcome := labelValue(m, "outcome")
		val := m.GetCounter().GetValue()
		switch {
		case op == "login" && outcome == OutcomeSuccess:
			if val != 2 {
				t.Errorf("login/success = %v, want 2", val)
			}
		case op == "login" && outcome == OutcomeFailure:
			if val != 1 {
				t.Errorf("login/failure = %v, want 1", val)
			}
		case op == "register" && outcome == OutcomeSuccess:
			if val != 1 {
				t.Errorf("register/success = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected labels: %s/%s", op, outcome)
		}
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)

	mf := findFamily(t, reg, "gatehouse_http_status_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		label := labelValue(m, "status_code")
		val := m.GetCounter().GetValue()
		switch label {
		case "200":
			if val != 2 {
				t.Errorf("http_status_total{status_code=200} = %v, want 2", val)
			}
		case "401":
			if val != 1 {
				t.Errorf("http_status_total{status_code=401} = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected label value: %s", label)
		}
	}
}

// TestRecordOperationLatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordOperationLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperationLatency("login", 100*time.Millisecond)
	c.RecordOperationLatency("login", 2*time.Second)

	mf := findFamily(t, reg, "gatehouse_account_operation_latency_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestRecordSessionsPurged_IncrementsCounter は削除セッション数が加算されることを検証する。
func TestRecordSessionsPurged_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsPurged(10)
	c.RecordSessionsPurged(5)

	mf := findFamily(t, reg, "gatehouse_sessions_purged_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 15 {
		t.Errorf("sessions_purged_total = %v, want 15", val)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperation("logout", OutcomeSuccess)
	c.RecordOperationLatency("logout", 5*time.Millisecond)
	c.RecordHTTPStatus(200)
	c.RecordSessionsPurged(1)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"gatehouse_account_operations_total",
		"gatehouse_account_operation_latency_seconds",
		"gatehouse_http_status_total",
		"gatehouse_sessions_purged_total",
	}
	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordSessionsPurged(1)
	c2.RecordSessionsPurged(2)

	val1 := findFamily(t, reg1, "gatehouse_sessions_purged_total").GetMetric()[0].GetCounter().GetValue()
	val2 := findFamily(t, reg2, "gatehouse_sessions_purged_total").GetMetric()[0].GetCounter().GetValue()

	if val1 != 1 {
		t.Errorf("reg1 sessions_purged = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 sessions_purged = %v, want 2", val2)
	}
}

// TestNopCollector_DoesNotPanic はNopCollectorが安全に呼び出せることを検証する。
func TestNopCollector_DoesNotPanic(t *testing.T) {
	var c MetricsCollector = NopCollector{}
	c.RecordOperation("login", OutcomeSuccess)
	c.RecordOperationLatency("login", time.Second)
	c.RecordHTTPStatus(500)
	c.RecordSessionsPurged(3)
}
