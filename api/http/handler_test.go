package http

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forever-free1/EbbKV/metrics"
	"github.com/forever-free1/EbbKV/storage/casklog"
	"github.com/forever-free1/EbbKV/watch"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := casklog.Open(filepath.Join(t.TempDir(), "api.log"))
	if err != nil {
		t.Fatalf("打开引擎失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer("127.0.0.1:0", db, watch.NewHub(), metrics.NewRegistry())
}

func TestHandler_PutThenGet(t *testing.T) {
	srv := newTestServer(t)

	body := strings.NewReader(`{"key":"key1","value":"this is a test transmission"}`)
	req := httptest.NewRequest("POST", "/v1/kv/put", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("Put 状态码不匹配: got %d, body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/v1/kv/get?key=key1", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("Get 状态码不匹配: got %d", w.Code)
	}

	var resp struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Value != "this is a test transmission" {
		t.Errorf("值不匹配: got %q", resp.Value)
	}
}

func TestHandler_GetMissingKeyReturns404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/v1/kv/get?key=never_written", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 404 {
		t.Errorf("未命中应返回 404: got %d", w.Code)
	}
}

func TestHandler_PutRejectsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/kv/put", strings.NewReader(`{"key":"k"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 400 {
		t.Errorf("缺少 value 应返回 400: got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/v1/kv/get", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 400 {
		t.Errorf("缺少 key 应返回 400: got %d", w.Code)
	}
}

func TestHandler_Stats(t *testing.T) {
	srv := newTestServer(t)

	body := strings.NewReader(`{"key":"key1","value":"value1"}`)
	req := httptest.NewRequest("POST", "/v1/kv/put", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("Put 状态码不匹配: got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/v1/kv/stats", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("Stats 状态码不匹配: got %d", w.Code)
	}

	var stats struct {
		Keys         int   `json:"keys"`
		LogSizeBytes int64 `json:"log_size_bytes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if stats.Keys != 1 {
		t.Errorf("键数量不匹配: got %d", stats.Keys)
	}
	if stats.LogSizeBytes <= 0 {
		t.Errorf("日志大小应大于 0: got %d", stats.LogSizeBytes)
	}
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("健康检查应返回 200: got %d", w.Code)
	}

	// 先产生一次操作，再确认指标端点有输出
	body := strings.NewReader(`{"key":"key1","value":"value1"}`)
	req = httptest.NewRequest("POST", "/v1/kv/put", body)
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("指标端点应返回 200: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ebbkv_ops_total") {
		t.Error("指标输出缺少 ebbkv_ops_total")
	}
}
