package watch

import (
	"encoding/json"
	"fmt"
	"sync"

	art "github.com/plar/go-adaptive-radix-tree"
)

// ==================== 事件定义 ====================

// EventType 定义事件类型
// 引擎是追加写模型，目前只有 put 事件
type EventType string

const (
	EventPut EventType = "put"
)

// Event 表示键值写入事件
type Event struct {
	Type  EventType `json:"type"`  // 事件类型
	Key   string    `json:"key"`   // 写入的键
	Value string    `json:"value"` // 写入的值
}

// ==================== Watcher 定义 ====================

// Watcher 表示一个订阅客户端
// 包含用于推送事件的 channel
type Watcher struct {
	// 用于推送事件的通道
	// 有键写入时，事件会通过这个 channel 发送给客户端
	Ch chan *Event

	// 该 watcher 关注的前缀
	// 为空字符串时表示关注所有键
	Prefix string

	closed bool
}

// NewWatcher 创建新的 Watcher
//
// 参数：
//   - prefix: 关注的前缀，为空表示关注所有
//   - bufferSize: 事件通道的缓冲区大小
//
// 返回：
//   - *Watcher: Watcher 实例
func NewWatcher(prefix string, bufferSize int) *Watcher {
	return &Watcher{
		Ch:     make(chan *Event, bufferSize),
		Prefix: prefix,
	}
}

// ==================== Hub 定义 ====================

// Hub 事件通知中心
// 负责管理所有的 Watcher，并把写入事件分发到前缀匹配的 Watcher
type Hub struct {
	// 关注所有键的 watcher（空前缀）
	catchAll []*Watcher

	// 保护 catchAll 与 prefixTree 的锁
	mu sync.RWMutex

	// 按前缀组织 watcher 的 ART 树
	// key: 前缀字符串
	// value: 关注该前缀的 watcher 列表
	// 分发时逐个查事件键的前缀，匹配成本只与键长相关，与 watcher 总数无关
	prefixTree art.Tree

	watcherCount int64
}

// NewHub 创建新的 Hub
//
// 返回：
//   - *Hub: Hub 实例
func NewHub() *Hub {
	return &Hub{
		catchAll:   make([]*Watcher, 0),
		prefixTree: art.New(),
	}
}

// ==================== Watcher 管理 ====================

// Watch 注册一个新的 Watcher
// 有键写入时，会向该 Watcher 的 channel 发送事件
//
// 参数：
//   - prefix: 关注的前缀，为空表示关注所有键
//   - bufferSize: 事件通道的缓冲区大小
//
// 返回：
//   - *Watcher: 注册的 Watcher 实例
func (h *Hub) Watch(prefix string, bufferSize int) *Watcher {
	watcher := NewWatcher(prefix, bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	if prefix == "" {
		h.catchAll = append(h.catchAll, watcher)
	} else {
		val, _ := h.prefixTree.Search(art.Key(prefix))
		var list []*Watcher
		if val != nil {
			list = val.([]*Watcher)
		}
		list = append(list, watcher)
		h.prefixTree.Insert(art.Key(prefix), list)
	}

	h.watcherCount++
	return watcher
}

// Unregister 取消注册一个 Watcher 并关闭其通道
//
// 参数：
//   - watcher: 要取消注册的 Watcher
func (h *Hub) Unregister(watcher *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := false
	if watcher.Prefix == "" {
		for i, w := range h.catchAll {
			if w == watcher {
				h.catchAll = append(h.catchAll[:i], h.catchAll[i+1:]...)
				removed = true
				break
			}
		}
	} else {
		val, found := h.prefixTree.Search(art.Key(watcher.Prefix))
		if found {
			list := val.([]*Watcher)
			for i, w := range list {
				if w == watcher {
					list = append(list[:i], list[i+1:]...)
					removed = true
					break
				}
			}
			if len(list) > 0 {
				h.prefixTree.Insert(art.Key(watcher.Prefix), list)
			} else {
				h.prefixTree.Delete(art.Key(watcher.Prefix))
			}
		}
	}

	if !watcher.closed {
		close(watcher.Ch)
		watcher.closed = true
	}
	if removed {
		h.watcherCount--
	}
}

// ==================== 事件通知 ====================

// Notify 把事件分发给所有前缀匹配的 Watcher
// 事件键的每个前缀在 ART 树里查一次，命中的列表加上空前缀 watcher 就是全部接收者
//
// 参数：
//   - event: 写入事件
func (h *Hub) Notify(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := 1; i <= len(event.Key); i++ {
		val, found := h.prefixTree.Search(art.Key(event.Key[:i]))
		if !found {
			continue
		}
		for _, watcher := range val.([]*Watcher) {
			send(watcher, event)
		}
	}

	for _, watcher := range h.catchAll {
		send(watcher, event)
	}
}

// send 向单个 watcher 非阻塞发送事件
// 慢消费者丢事件，不阻塞写入路径
func send(watcher *Watcher, event *Event) {
	if watcher.closed {
		return
	}
	select {
	case watcher.Ch <- event:
	default:
	}
}

// NotifyPut 通知 Put 事件
// 在引擎写入成功之后调用
//
// 参数：
//   - key: 写入的键
//   - value: 写入的值
func (h *Hub) NotifyPut(key string, value string) {
	h.Notify(&Event{
		Type:  EventPut,
		Key:   key,
		Value: value,
	})
}

// ==================== 工具方法 ====================

// Count 返回当前注册的 watcher 数量
func (h *Hub) Count() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.watcherCount
}

// Close 关闭所有 watcher
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, watcher := range h.catchAll {
		if !watcher.closed {
			close(watcher.Ch)
			watcher.closed = true
		}
	}
	h.prefixTree.ForEach(func(node art.Node) bool {
		if node.Value() == nil {
			return true
		}
		for _, watcher := range node.Value().([]*Watcher) {
			if !watcher.closed {
				close(watcher.Ch)
				watcher.closed = true
			}
		}
		return true
	})

	h.catchAll = nil
	h.prefixTree = art.New()
	h.watcherCount = 0
}

// String 返回 Hub 的字符串描述
func (h *Hub) String() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fmt.Sprintf("Hub{watchers: %d}", h.watcherCount)
}

// EventToJSON 将事件转换为 JSON 字符串
func EventToJSON(event *Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseEventFromJSON 从 JSON 字符串解析事件
func ParseEventFromJSON(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}
