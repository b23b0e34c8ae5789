package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.Handle))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, srv
}

func TestHubBroadcastReload(t *testing.T) {
	hub := NewHub()
	conn, srv := dialTestHub(t, hub)
	defer srv.Close()
	defer conn.Close()

	// Registration races the dial return; wait for the hub to see it.
	deadline := time.Now().Add(time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.Count())
	}

	hub.BroadcastReload("landing")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg ReloadMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "reload" || msg.Slug != "landing" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestHubBroadcastReloadConcurrent(t *testing.T) {
	hub := NewHub()
	conn, srv := dialTestHub(t, hub)
	defer srv.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Writes race from request goroutines and the watcher; the hub must
	// serialize them per connection.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.BroadcastReload("landing")
		}()
	}
	wg.Wait()

	if hub.Count() != 1 {
		t.Fatalf("client should survive concurrent broadcasts, %d registered", hub.Count())
	}

	conn.Close()
	<-drained
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	conn, srv := dialTestHub(t, hub)
	defer srv.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Fatalf("closed client should be pruned, still %d registered", hub.Count())
	}
}
