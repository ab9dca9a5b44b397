package voice

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ConnectionManager 每个房间只保留一个参与者连接
type ConnectionManager struct {
	mu          sync.Mutex
	connections map[string]*websocket.Conn
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{connections: make(map[string]*websocket.Conn)}
}

// Add 登记房间连接，已有的旧连接会被关闭并返回 true。
func (cm *ConnectionManager) Add(room string, conn *websocket.Conn) bool {
	cm.mu.Lock()
	old, exists := cm.connections[room]
	cm.connections[room] = conn
	cm.mu.Unlock()

	if exists && old != conn {
		old.Close()
		return true
	}
	return false
}

// Get 获取房间当前连接
func (cm *ConnectionManager) Get(room string) (*websocket.Conn, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	conn, ok := cm.connections[room]
	return conn, ok
}

// Remove 仅当 conn 仍是房间的当前连接时移除
func (cm *ConnectionManager) Remove(room string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if current, ok := cm.connections[room]; ok && current == conn {
		delete(cm.connections, room)
	}
}

// Len 当前连接数
func (cm *ConnectionManager) Len() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.connections)
}

// CloseAll 关闭所有连接
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for room, conn := range cm.connections {
		conn.Close()
		delete(cm.connections, room)
	}
}
