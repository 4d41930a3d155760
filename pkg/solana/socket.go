package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// AccountNotification is one lamport-balance update pushed by the node for a
// subscribed account.
type AccountNotification struct {
	AccountAddress string
	Lamports       int64
}

// StreamClient manages lightweight streaming subscriptions against a Solana
// websocket endpoint.
type StreamClient struct {
	StreamURL string
	dialer    *websocket.Dialer
}

// NewStreamClient builds a websocket client for the given wss endpoint.
func NewStreamClient(wssURL string) *StreamClient {
	return &StreamClient{
		StreamURL: wssURL,
		dialer:    websocket.DefaultDialer,
	}
}

// SubscribeAccount listens for lamport changes on one account and pushes
// updates into a channel. It returns the channel and a stop function.
func (c *StreamClient) SubscribeAccount(ctx context.Context, account string) (<-chan AccountNotification, func(), error) {
	conn, _, err := c.dialer.DialContext(ctx, c.StreamURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial solana ws: %w", err)
	}

	sub := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "accountSubscribe",
		"params":  []any{account, map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("subscribe account %s: %w", account, err)
	}

	out := make(chan AccountNotification, 100)
	stopCh := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() { close(stopCh) })
	}

	// The closer owns connection teardown. Closing the socket is what
	// unblocks a reader stuck in ReadMessage, so cancellation and stop both
	// funnel through here.
	go func() {
		select {
		case <-ctx.Done():
		case <-stopCh:
		}
		// Ignore errors; connection may already be closed.
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	// The reader is the sole closer of out.
	go func() {
		defer close(out)
		defer stop()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
					strings.Contains(err.Error(), "use of closed network connection") {
					return
				}
				log.Printf("solana ws read error: %v", err)
				return
			}

			lamports, ok, err := parseAccountNotification(msg)
			if err != nil {
				log.Printf("solana ws parse error: %v", err)
				continue
			}
			if !ok {
				continue // subscription ack or unrelated frame
			}
			select {
			case out <- AccountNotification{AccountAddress: account, Lamports: lamports}:
			case <-stopCh:
				return
			}
		}
	}()

	return out, stop, nil
}

// parseAccountNotification decodes only the fields we need. The second return
// is false for frames that are not account notifications.
func parseAccountNotification(msg []byte) (int64, bool, error) {
	var raw struct {
		Method string `json:"method"`
		Params struct {
			Result struct {
				Value struct {
					Lamports int64 `json:"lamports"`
				} `json:"value"`
			} `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return 0, false, err
	}
	if raw.Method != "accountNotification" {
		return 0, false, nil
	}
	return raw.Params.Result.Value.Lamports, true, nil
}
