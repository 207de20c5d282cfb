package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は収集結果から指定名のメトリクスファミリーを探す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
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

// labelValue はメトリクスから指定ラベルの値を返す。
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

// TestCollector_ImplementsInterface はCollectorがMetricsCollectorを満たすことを検証する。
func TestCollector_ImplementsInterface(t *testing.T) {
	var _ MetricsCollector = NewCollector(prometheus.NewRegistry())
}

// TestRecordGuardDecision_LabelsByPointAndOutcome は評価地点と結果でラベル付けされることを検証する。
func TestRecordGuardDecision_LabelsByPointAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGuardDecision(PointEdge, "allow")
	c.RecordGuardDecision(PointEdge, "allow")
	c.RecordGuardDecision(PointServer, "redirect")

	mf := findMetricFamily(t, reg, "dreamroad_guard_decisions_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label sets, got %d", len(mf.GetMetric()))
	}

	for _, m := range mf.GetMetric() {
		point := labelValue(m, "point")
		outcome := labelValue(m, "outcome")
		val := m.GetCounter().GetValue()
		switch {
		case point == PointEdge && outcome == "allow":
			if val != 2 {
				t.Errorf("edge/allow = %v, want 2", val)
			}
		case point == PointServer && outcome == "redirect":
			if val != 1 {
				t.Errorf("server/redirect = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected labels point=%q outcome=%q", point, outcome)
		}
	}
}

// TestRecordLogin_IncrementsByResult はログイン結果別にカウントされることを検証する。
func TestRecordLogin_IncrementsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("invalid_credentials")
	c.RecordLogin("success")

	mf := findMetricFamily(t, reg, "dreamroad_login_total")
	for _, m := range mf.GetMetric() {
		want := 1.0
		if labelValue(m, "result") == "success" {
			want = 2
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Errorf("login_total{result=%q} = %v, want %v", labelValue(m, "result"), got, want)
		}
	}
}

// TestRecordBlockCheckFailure_IncrementsCounter は利用停止確認失敗カウンタが増加することを検証する。
func TestRecordBlockCheckFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBlockCheckFailure()

	mf := findMetricFamily(t, reg, "dreamroad_block_check_failures_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 1 {
		t.Errorf("block_check_failures_total = %v, want 1", val)
	}
}

// TestRecordHTTPStatus_LabelsStatusCode はステータスコードがラベルになることを検証する。
func TestRecordHTTPStatus_LabelsStatusCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(302)

	mf := findMetricFamily(t, reg, "dreamroad_http_status_total")
	if got := labelValue(mf.GetMetric()[0], "status_code"); got != "302" {
		t.Errorf("status_code = %q, want %q", got, "302")
	}
}

// TestRecordRequestLatency_ObservesHistogram はヒストグラムに記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)

	mf := findMetricFamily(t, reg, "dreamroad_http_request_duration_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.149 || h.GetSampleSum() > 0.151 {
		t.Errorf("sample sum = %v, want 0.15", h.GetSampleSum())
	}
}

// TestRecordStoreRowsCleaned_AddsCount は削除行数が加算されることを検証する。
func TestRecordStoreRowsCleaned_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStoreRowsCleaned(12)
	c.RecordStoreRowsCleaned(0)

	mf := findMetricFamily(t, reg, "dreamroad_store_rows_cleaned_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 12 {
		t.Errorf("store_rows_cleaned_total = %v, want 12", val)
	}
}
