package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/forever-free1/EbbKV/storage"
	"github.com/forever-free1/EbbKV/storage/casklog"
)

// record 是测试用的业务结构
type record struct {
	Name  string   `msgpack:"name"`
	Count int64    `msgpack:"count"`
	Tags  []string `msgpack:"tags,omitempty"`
}

func openEngine(t *testing.T, path string) *casklog.DB {
	t.Helper()
	db, err := casklog.Open(path)
	if err != nil {
		t.Fatalf("打开引擎失败: %v", err)
	}
	return db
}

func TestStore_PutThenGet(t *testing.T) {
	db := openEngine(t, filepath.Join(t.TempDir(), "store.log"))
	defer db.Close()

	s := New(db)
	id := uuid.New()
	want := record{Name: "this is a test transmission", Count: 42, Tags: []string{"a", "b"}}
	if err := s.Put(id, &want); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	var got record
	if err := s.Get(id, &got); err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if got.Name != want.Name || got.Count != want.Count || len(got.Tags) != 2 {
		t.Errorf("记录不匹配: got %+v, want %+v", got, want)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	db := openEngine(t, filepath.Join(t.TempDir(), "store.log"))
	defer db.Close()

	s := New(db)
	if err := s.Put(uuid.New(), &record{Name: "valueA"}); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	var got record
	err := s.Get(uuid.New(), &got)
	if !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("期望 ErrKeyNotFound, 得到: %v", err)
	}
}

func TestStore_StringValue(t *testing.T) {
	db := openEngine(t, filepath.Join(t.TempDir(), "store.log"))
	defer db.Close()

	s := New(db)
	id := uuid.New()
	if err := s.Put(id, "this is a test transmission"); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	var got string
	if err := s.Get(id, &got); err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if got != "this is a test transmission" {
		t.Errorf("值不匹配: got %q", got)
	}
}

func TestStore_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.log")

	db1 := openEngine(t, path)
	s1 := New(db1)
	id := uuid.New()
	if err := s1.Put(id, &record{Name: "persisted", Count: 7}); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}

	db2 := openEngine(t, path)
	defer db2.Close()
	s2 := New(db2)

	if !s2.Has(id) {
		t.Fatal("重开后记录应仍然存在")
	}
	var got record
	if err := s2.Get(id, &got); err != nil {
		t.Fatalf("重开后 Get 失败: %v", err)
	}
	if got.Name != "persisted" || got.Count != 7 {
		t.Errorf("重开后记录不匹配: got %+v", got)
	}
}
