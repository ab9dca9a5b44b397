package voice

import "testing"

func TestConnectionManagerReplacesOlderConnection(t *testing.T) {
	first, firstClient := newConnPair(t)
	second, _ := newConnPair(t)
	cm := NewConnectionManager()

	if replaced := cm.Add("room", first); replaced {
		t.Fatalf("first connection should not replace anything")
	}
	if replaced := cm.Add("room", second); !replaced {
		t.Fatalf("second connection should replace the first")
	}

	// 旧连接已被关闭
	if _, _, err := firstClient.ReadMessage(); err == nil {
		t.Fatalf("expected older connection to be closed")
	}

	cm.Remove("room", first)
	if conn, ok := cm.Get("room"); !ok || conn != second {
		t.Fatalf("removing a stale connection must keep the current one")
	}

	cm.Remove("room", second)
	if cm.Len() != 0 {
		t.Fatalf("expected no connections, got %d", cm.Len())
	}
}

func TestConnectionManagerCloseAll(t *testing.T) {
	a, _ := newConnPair(t)
	b, _ := newConnPair(t)
	cm := NewConnectionManager()
	cm.Add("a", a)
	cm.Add("b", b)

	cm.CloseAll()
	if cm.Len() != 0 {
		t.Fatalf("expected empty manager, got %d", cm.Len())
	}
}
