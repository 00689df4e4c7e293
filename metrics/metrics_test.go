package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry_ObserveAndExpose(t *testing.T) {
	r := NewRegistry()

	r.ObserveOp("put", "ok", 0.001)
	r.ObserveOp("get", "miss", 0.0002)
	r.KeysTotal.Set(3)
	r.LogSizeBytes.Set(128)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("状态码不匹配: got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`ebbkv_ops_total{operation="put",status="ok"} 1`,
		`ebbkv_ops_total{operation="get",status="miss"} 1`,
		"ebbkv_keys_total 3",
		"ebbkv_log_size_bytes 128",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("指标输出缺少 %q", want)
		}
	}
}
