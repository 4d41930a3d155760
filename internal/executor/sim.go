package executor

import (
	"context"
	"log"
	"strconv"
	"sync"

	"soltrader/internal/order"
	"soltrader/internal/strategy"
	"soltrader/pkg/amount"
	"soltrader/pkg/solana"
)

// maxSwapHistory bounds the synthetic confirmation history; the oldest
// arrival is evicted first.
const maxSwapHistory = 10

// SimExecutor fills swap orders against synthetic balances so the whole
// pipeline runs without a settlement layer. Signatures are sequential
// integers; confirmations come from a bounded in-memory history.
type SimExecutor struct {
	ops strategy.TradeOps

	mu            sync.Mutex
	nextTxID      int
	historyOrder  []int
	history       map[int][]solana.SwapTransactionInfo
	solBalances   map[string]amount.Amount            // key: owner address
	tokenBalances map[string]map[string]amount.Amount // key: owner, then token
}

// NewSimExecutor seeds the default payer with a starting SOL balance.
// BindOps must be called before the first Execute.
func NewSimExecutor(defaultWallets *order.SignerWalletSettings, startingSol amount.Amount) *SimExecutor {
	s := &SimExecutor{
		history:       make(map[int][]solana.SwapTransactionInfo),
		solBalances:   make(map[string]amount.Amount),
		tokenBalances: make(map[string]map[string]amount.Amount),
	}
	if signer, ok := defaultWallets.DefaultSigner(); ok {
		s.solBalances[signer.Address] = startingSol
	}
	return s
}

// BindOps wires the exchange estimator in after the manager exists; the
// manager and the sim executor reference each other.
func (s *SimExecutor) BindOps(ops strategy.TradeOps) { s.ops = ops }

// Execute fills a swap or every leg of a bundle. Unknown owners and unpriced
// tokens yield no signatures.
func (s *SimExecutor) Execute(ctx context.Context, o order.ExecutableOrder, maxTries int) []string {
	switch typed := o.(type) {
	case *order.BundledSwapOrder:
		var signatures []string
		for _, sub := range typed.SubOrders() {
			if sub.Wallets == nil {
				sub.Wallets = typed.Wallets
			}
			signatures = append(signatures, s.fill(sub)...)
		}
		return signatures
	case *order.SwapOrder:
		return s.fill(typed)
	default:
		log.Printf("sim executor: unsupported order kind %v", o.Kind())
		return nil
	}
}

func (s *SimExecutor) fill(o *order.SwapOrder) []string {
	signer, ok := o.Wallets.DefaultSigner()
	if !ok {
		return nil
	}
	owner := signer.Address
	spend := o.SignerAmount(signer)

	s.mu.Lock()
	defer s.mu.Unlock()

	solBalance, ok := s.solBalances[owner]
	if !ok {
		log.Printf("sim executor: unknown owner %s", owner)
		return nil
	}

	info := solana.SwapTransactionInfo{
		TxSignature:  strconv.Itoa(s.nextTxID),
		TokenAddress: o.Token,
		Fee:          o.Settings.PriorityFee.Scaled().IntPart(),
		PayerAddress: owner,
	}

	tokenBalance := s.tokenBalance(owner, o.Token)

	if o.OrderSide == order.SideBuy {
		tokensOut, ok := s.ops.GetExchange(o.Token, spend, true)
		if !ok {
			log.Printf("sim executor: no pool for %s", o.Token)
			return nil
		}
		s.solBalances[owner] = solBalance.Sub(spend)
		if tokenBalance.IsZero() {
			tokenBalance = tokensOut // adopt the token's own resolution
		} else {
			tokenBalance = tokenBalance.Add(tokensOut)
		}

		info.SolBalanceChange = -spend.Scaled().IntPart()
		info.TokenBalanceChange = tokensOut.UIDecimal()
		info.TokenDecimals = tokensOut.Decimals()
	} else {
		solOut, ok := s.ops.GetExchange(o.Token, spend, false)
		if !ok {
			log.Printf("sim executor: no pool for %s", o.Token)
			return nil
		}
		s.solBalances[owner] = solBalance.Add(solOut)
		tokenBalance = tokenBalance.Sub(spend)

		info.SolBalanceChange = solOut.Scaled().IntPart()
		info.TokenBalanceChange = spend.UIDecimal().Neg()
		info.TokenDecimals = spend.Decimals()
	}

	if tokenBalance.IsPositive() {
		s.tokenBalances[owner][o.Token] = tokenBalance
	} else {
		delete(s.tokenBalances[owner], o.Token)
	}
	info.PayerTokenBalance = tokenBalance.UIDecimal()

	s.history[s.nextTxID] = []solana.SwapTransactionInfo{info}
	s.historyOrder = append(s.historyOrder, s.nextTxID)
	if len(s.historyOrder) > maxSwapHistory {
		oldest := s.historyOrder[0]
		s.historyOrder = s.historyOrder[1:]
		delete(s.history, oldest)
	}
	s.nextTxID++

	return []string{info.TxSignature}
}

// tokenBalance returns the owner's balance for a token, creating the zero
// entry map on first touch. Caller holds the lock.
func (s *SimExecutor) tokenBalance(owner, token string) amount.Amount {
	balances, ok := s.tokenBalances[owner]
	if !ok {
		balances = make(map[string]amount.Amount)
		s.tokenBalances[owner] = balances
	}
	if b, ok := balances[token]; ok {
		return b
	}
	return amount.Zero(amount.SolDecimals)
}

// GetSwapInfo answers from the synthetic history. Evicted and unknown
// signatures yield nil.
func (s *SimExecutor) GetSwapInfo(_ context.Context, signature, _ string, _ int) []solana.SwapTransactionInfo {
	id, err := strconv.Atoi(signature)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[id]
}

// GetSolBalance returns an owner's synthetic SOL balance.
func (s *SimExecutor) GetSolBalance(account string) (amount.Amount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.solBalances[account]
	return b, ok
}

// GetTokenAccountBalance returns an owner's synthetic token balance.
func (s *SimExecutor) GetTokenAccountBalance(token, owner string) (amount.Amount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.tokenBalances[owner][token]
	return b, ok
}

func (s *SimExecutor) Stop() {}
