// Package solana wraps the JSON-RPC and websocket access the trading core
// needs from a Solana RPC node. Transaction parsing stays at the parsed
// balance-change level; raw instruction decoding is out of scope.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Client wraps JSON-RPC access to a Solana node with request pacing.
type Client struct {
	HTTPURL    string
	WSSURL     string
	HTTPClient *http.Client

	limiter *rate.Limiter
	reqID   int64
	mu      sync.Mutex

	blockhashMu     sync.RWMutex
	latestBlockhash string
}

// NewClient builds an RPC client. requestsPerSecond bounds the outbound
// request rate across all callers.
func NewClient(httpURL, wssURL string, requestsPerSecond int) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &Client{
		HTTPURL:    httpURL,
		WSSURL:     wssURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.reqID++
	id := c.reqID
	c.mu.Unlock()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.HTTPURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s status %d", method, res.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(envelope.Result, result)
}

// GetSolBalance returns an account's lamport balance.
func (c *Client) GetSolBalance(ctx context.Context, account string) (int64, error) {
	var out struct {
		Value int64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{account}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetTokenAccountBalance returns the owner's balance for one mint, or nil when
// the owner holds no account for it.
func (c *Client) GetTokenAccountBalance(ctx context.Context, mint, owner string) (*TokenAccountBalance, error) {
	var out struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount struct {
								UIAmountString string `json:"uiAmountString"`
								Decimals       int32  `json:"decimals"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	params := []any{owner, map[string]string{"mint": mint}, map[string]string{"encoding": "jsonParsed"}}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &out); err != nil {
		return nil, err
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	ta := out.Value[0].Account.Data.Parsed.Info.TokenAmount
	ui, err := decimal.NewFromString(ta.UIAmountString)
	if err != nil {
		return nil, fmt.Errorf("parse token amount %q: %w", ta.UIAmountString, err)
	}
	return &TokenAccountBalance{Amount: ui, Decimals: ta.Decimals}, nil
}

// UpdateLatestBlockhash refreshes the cached recent blockhash.
func (c *Client) UpdateLatestBlockhash(ctx context.Context) error {
	var out struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &out); err != nil {
		return err
	}
	c.blockhashMu.Lock()
	c.latestBlockhash = out.Value.Blockhash
	c.blockhashMu.Unlock()
	return nil
}

// LatestBlockhash returns the most recently cached blockhash.
func (c *Client) LatestBlockhash() string {
	c.blockhashMu.RLock()
	defer c.blockhashMu.RUnlock()
	return c.latestBlockhash
}

// transaction meta as returned by getTransaction with jsonParsed encoding.
type transactionMeta struct {
	Fee          int64   `json:"fee"`
	PreBalances  []int64 `json:"preBalances"`
	PostBalances []int64 `json:"postBalances"`
	PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
	PostTokenBalances []tokenBalance `json:"postTokenBalances"`
}

type tokenBalance struct {
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		UIAmountString string `json:"uiAmountString"`
		Decimals       int32  `json:"decimals"`
	} `json:"uiTokenAmount"`
}

type transactionResult struct {
	Meta        *transactionMeta `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []struct {
				Pubkey string `json:"pubkey"`
			} `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// GetSwapInfo polls for a confirmed transaction and reduces it to per-token
// balance-change records for the payer. An empty result after maxTries means
// "not yet confirmed", not failure.
func (c *Client) GetSwapInfo(ctx context.Context, signature, payer string, maxTries int) []SwapTransactionInfo {
	if maxTries <= 0 {
		maxTries = 1
	}
	for attempt := 0; attempt < maxTries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}

		var tx transactionResult
		params := []any{signature, map[string]any{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
		}}
		if err := c.call(ctx, "getTransaction", params, &tx); err != nil {
			continue
		}
		if tx.Meta == nil {
			continue // not finalized yet
		}
		return reduceSwapInfo(signature, payer, &tx)
	}
	return nil
}

func reduceSwapInfo(signature, payer string, tx *transactionResult) []SwapTransactionInfo {
	meta := tx.Meta

	payerIdx := -1
	for i, key := range tx.Transaction.Message.AccountKeys {
		if key.Pubkey == payer {
			payerIdx = i
			break
		}
	}

	var solChange int64
	if payerIdx >= 0 && payerIdx < len(meta.PreBalances) && payerIdx < len(meta.PostBalances) {
		solChange = meta.PostBalances[payerIdx] - meta.PreBalances[payerIdx]
	}

	pre := make(map[string]tokenBalance)
	for _, tb := range meta.PreTokenBalances {
		if tb.Owner == payer {
			pre[tb.Mint] = tb
		}
	}

	var infos []SwapTransactionInfo
	seen := make(map[string]bool)
	for _, tb := range meta.PostTokenBalances {
		if tb.Owner != payer {
			continue
		}
		seen[tb.Mint] = true
		post := parseUIAmount(tb.UITokenAmount.UIAmountString)
		var before decimal.Decimal
		if p, ok := pre[tb.Mint]; ok {
			before = parseUIAmount(p.UITokenAmount.UIAmountString)
		}
		infos = append(infos, SwapTransactionInfo{
			TxSignature:        signature,
			TokenAddress:       tb.Mint,
			SolBalanceChange:   solChange,
			TokenBalanceChange: post.Sub(before),
			TokenDecimals:      tb.UITokenAmount.Decimals,
			Fee:                meta.Fee,
			PayerAddress:       payer,
			PayerTokenBalance:  post,
		})
	}
	// Accounts emptied by the swap only appear in the pre set.
	for mint, tb := range pre {
		if seen[mint] {
			continue
		}
		before := parseUIAmount(tb.UITokenAmount.UIAmountString)
		infos = append(infos, SwapTransactionInfo{
			TxSignature:        signature,
			TokenAddress:       mint,
			SolBalanceChange:   solChange,
			TokenBalanceChange: before.Neg(),
			TokenDecimals:      tb.UITokenAmount.Decimals,
			Fee:                meta.Fee,
			PayerAddress:       payer,
		})
	}
	return infos
}

func parseUIAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
