package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forever-free1/EbbKV/metrics"
	"github.com/forever-free1/EbbKV/storage"
	"github.com/forever-free1/EbbKV/watch"
)

// ==================== Handler 定义 ====================

// Backend 是 HTTP 层对存储引擎的最小依赖
type Backend interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) bool
	Len() int
}

// sizer 是可选能力：能报告日志大小的引擎
type sizer interface {
	LogSize() int64
}

// Handler HTTP 请求处理器
type Handler struct {
	// 存储引擎
	backend Backend

	// 事件通知中心
	hub *watch.Hub

	// 指标（可为 nil）
	metrics *metrics.Registry
}

// NewHandler 创建新的 Handler
//
// 参数：
//   - backend: 存储引擎
//   - hub: 事件通知中心
//   - reg: 指标 Registry，可为 nil
//
// 返回：
//   - *Handler: Handler 实例
func NewHandler(backend Backend, hub *watch.Hub, reg *metrics.Registry) *Handler {
	return &Handler{
		backend: backend,
		hub:     hub,
		metrics: reg,
	}
}

// ==================== API 路由 ====================

// RegisterRoutes 注册所有路由
//
// 参数：
//   - engine: Gin 引擎
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	// 健康检查
	engine.GET("/health", h.HealthCheck)

	// Prometheus 指标
	if h.metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	// KV 存储 API
	v1 := engine.Group("/v1")
	{
		kv := v1.Group("/kv")
		{
			kv.POST("/put", h.Put)
			kv.GET("/get", h.Get)
			kv.GET("/stats", h.Stats)
		}

		// Watch API (SSE 长连接)
		v1.GET("/watch", h.Watch)
	}
}

// ==================== API 处理函数 ====================

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Put 请求处理
// POST /v1/kv/put
func (h *Handler) Put(c *gin.Context) {
	type PutRequest struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value" binding:"required"`
	}

	var req PutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request: " + err.Error(),
		})
		return
	}

	start := time.Now()
	err := h.backend.Put([]byte(req.Key), []byte(req.Value))
	if err != nil {
		h.observe("put", "error", start)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "put failed: " + err.Error(),
		})
		return
	}
	h.observe("put", "ok", start)
	h.refreshGauges()

	// 通知 Watch 客户端
	if h.hub != nil {
		h.hub.NotifyPut(req.Key, req.Value)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "ok",
		"key":     req.Key,
	})
}

// Get 请求处理
// GET /v1/kv/get?key=xxx
func (h *Handler) Get(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "key is required",
		})
		return
	}

	start := time.Now()
	value, err := h.backend.Get([]byte(key))
	if err != nil {
		// 未命中与引擎故障必须区分：前者是 404，后者是 500
		if errors.Is(err, storage.ErrKeyNotFound) {
			h.observe("get", "miss", start)
			c.JSON(http.StatusNotFound, gin.H{
				"error": "key not found",
			})
			return
		}
		h.observe("get", "error", start)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "get failed: " + err.Error(),
		})
		return
	}
	h.observe("get", "ok", start)

	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": string(value),
	})
}

// Stats 请求处理
// GET /v1/kv/stats
func (h *Handler) Stats(c *gin.Context) {
	stats := gin.H{
		"keys": h.backend.Len(),
	}
	if s, ok := h.backend.(sizer); ok {
		stats["log_size_bytes"] = s.LogSize()
	}
	if h.hub != nil {
		stats["watchers"] = h.hub.Count()
	}
	c.JSON(http.StatusOK, stats)
}

// ==================== Watch (SSE) ====================

// Watch 处理 Watch 请求
// GET /v1/watch?prefix=xxx
// 使用 Server-Sent Events (SSE) 实现长连接
func (h *Handler) Watch(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "watch not enabled",
		})
		return
	}

	prefix := c.DefaultQuery("prefix", "")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// 使用较大的缓冲区以支持高并发场景
	watcher := h.hub.Watch(prefix, 1000)
	defer h.hub.Unregister(watcher)
	if h.metrics != nil {
		h.metrics.WatchersActive.Set(float64(h.hub.Count()))
		defer func() {
			h.metrics.WatchersActive.Set(float64(h.hub.Count()))
		}()
	}

	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	c.Status(http.StatusOK)
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "streaming not supported",
		})
		return
	}

	// 发送初始连接消息
	fmt.Fprintf(c.Writer, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-clientGone:
			return

		case event := <-watcher.Ch:
			data, err := watch.EventToJSON(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
			flusher.Flush()

		case <-ticker.C:
			// 心跳，保持连接
			fmt.Fprintf(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// ==================== 指标辅助 ====================

func (h *Handler) observe(operation, status string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveOp(operation, status, time.Since(start).Seconds())
}

func (h *Handler) refreshGauges() {
	if h.metrics == nil {
		return
	}
	h.metrics.KeysTotal.Set(float64(h.backend.Len()))
	if s, ok := h.backend.(sizer); ok {
		h.metrics.LogSizeBytes.Set(float64(s.LogSize()))
	}
}

// ==================== 服务器启动 ====================

// Server HTTP 服务器
type Server struct {
	addr    string
	engine  *gin.Engine
	handler *Handler
}

// NewServer 创建新的 Server
func NewServer(addr string, backend Backend, hub *watch.Hub, reg *metrics.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	handler := NewHandler(backend, hub, reg)
	handler.RegisterRoutes(engine)

	return &Server{
		addr:    addr,
		engine:  engine,
		handler: handler,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	return s.engine.Run(s.addr)
}

// ServeHTTP 实现 http.Handler 接口
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// StartTLS 启动 HTTPS 服务器
func (s *Server) StartTLS(certFile, keyFile string) error {
	return s.engine.RunTLS(s.addr, certFile, keyFile)
}
