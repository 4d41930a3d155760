package solana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeAccountNode upgrades connections, acks the subscribe request, pushes
// one lamport notification and then waits for the client to hang up.
func fakeAccountNode(t *testing.T, lamports int64) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","result":1,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"method":"accountNotification","params":{"result":{"value":{"lamports":`+
				strconv.FormatInt(lamports, 10)+`}}}}`))

		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSubscribeAccountDeliversNotifications(t *testing.T) {
	server := fakeAccountNode(t, 2_500_000_000)
	defer server.Close()

	client := NewStreamClient(wsURL(server))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, stop, err := client.SubscribeAccount(ctx, "Payer111")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	select {
	case note, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before a notification arrived")
		}
		if note.AccountAddress != "Payer111" || note.Lamports != 2_500_000_000 {
			t.Fatalf("notification = %+v", note)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification within 2s")
	}
}

func TestSubscribeAccountContextCancelClosesChannel(t *testing.T) {
	server := fakeAccountNode(t, 1)
	defer server.Close()

	client := NewStreamClient(wsURL(server))
	ctx, cancel := context.WithCancel(context.Background())

	ch, stop, err := client.SubscribeAccount(ctx, "Payer111")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // reader exited and closed the channel
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancel")
		}
	}
}

func TestSubscribeAccountStopIsIdempotent(t *testing.T) {
	server := fakeAccountNode(t, 1)
	defer server.Close()

	client := NewStreamClient(wsURL(server))
	ch, stop, err := client.SubscribeAccount(context.Background(), "Payer111")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stop()
	stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after stop")
		}
	}
}
