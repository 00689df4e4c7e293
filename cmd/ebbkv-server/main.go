package main

import (
	"flag"
	"log"
	"time"

	apihttp "github.com/forever-free1/EbbKV/api/http"
	"github.com/forever-free1/EbbKV/metrics"
	"github.com/forever-free1/EbbKV/storage/casklog"
	"github.com/forever-free1/EbbKV/watch"
)

// main 是 ebbkv-server 的入口
// 打开日志引擎，装配 watch 中心、指标与 HTTP 服务
func main() {
	var (
		addr      = flag.String("addr", "127.0.0.1:8080", "HTTP 监听地址")
		dataPath  = flag.String("data", "ebb.log", "日志文件路径")
		indexType = flag.String("index", "art", "索引类型: art 或 map")
		compress  = flag.Bool("compress", false, "开启 snappy 压缩")
		syncPut   = flag.Bool("sync", false, "每次写入后 fsync")
		bloomFP   = flag.Float64("bloom-fp", 0.01, "布隆过滤器误判率")
	)
	flag.Parse()

	opts := []casklog.Option{
		casklog.WithBloomFilterFP(*bloomFP),
	}
	if *indexType == "map" {
		opts = append(opts, casklog.WithIndexType(casklog.IndexTypeMap))
	}
	if *compress {
		opts = append(opts, casklog.WithCompression())
	}
	if *syncPut {
		opts = append(opts, casklog.WithSyncOnPut())
	}

	start := time.Now()
	db, err := casklog.Open(*dataPath, opts...)
	if err != nil {
		log.Fatalf("打开存储引擎失败: %v", err)
	}
	defer db.Close()
	recovery := time.Since(start)
	log.Printf("恢复完成: %d 个键, 日志 %d 字节, 耗时 %s", db.Len(), db.LogSize(), recovery)

	reg := metrics.NewRegistry()
	reg.RecoverySeconds.Set(recovery.Seconds())
	reg.KeysTotal.Set(float64(db.Len()))
	reg.LogSizeBytes.Set(float64(db.LogSize()))

	hub := watch.NewHub()
	defer hub.Close()

	srv := apihttp.NewServer(*addr, db, hub, reg)
	log.Printf("ebbkv-server 监听 %s", *addr)
	if err := srv.Start(); err != nil {
		log.Fatalf("HTTP 服务退出: %v", err)
	}
}
