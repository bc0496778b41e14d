package websocket

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/pkg/logger"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()

	log := logger.NewWithWriter(&bytes.Buffer{}, "error")
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, log)
		if !hub.Register(client) {
			_ = conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))

	return hub, server, cancel
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DeliverBroadcastsReport(t *testing.T) {
	hub, server, cancel := startHub(t)
	defer server.Close()
	defer cancel()

	first := dial(t, server)
	defer first.Close()
	second := dial(t, server)
	defer second.Close()
	waitClients(t, hub, 2)

	report := dto.NewReportDTO("r1", time.Now(), nil)
	if err := hub.Deliver(context.Background(), report); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type string        `json:"type"`
			Data dto.ReportDTO `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.Type != "report" || msg.Data.ID != "r1" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, server, cancel := startHub(t)
	defer server.Close()
	defer cancel()

	conn := dial(t, server)
	waitClients(t, hub, 1)

	_ = conn.Close()
	waitClients(t, hub, 0)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, server, cancel := startHub(t)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()
	waitClients(t, hub, 1)

	cancel()
	waitClients(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close after hub stop")
	}

	if hub.Register(&Client{}) {
		t.Fatal("Register must fail on a stopped hub")
	}
}

func TestHub_DeliverWhenQueueFull(t *testing.T) {
	hub := NewHub(logger.NewWithWriter(&bytes.Buffer{}, "error"))
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.broadcast <- Message{}
	}

	if err := hub.Deliver(context.Background(), &dto.ReportDTO{}); err != ErrBroadcastQueueFull {
		t.Fatalf("Deliver() error = %v, want ErrBroadcastQueueFull", err)
	}
}
