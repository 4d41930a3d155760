package market

import (
	"context"
	"log"
	"math/rand"
	"time"

	"soltrader/internal/events"
)

// MockFeed generates synthetic price ticks for sim mode. Each tracked token
// random-walks around its reserve-derived price.
type MockFeed struct {
	Bus      *events.Bus
	Manager  *Manager
	Tokens   []string
	StepPct  float64 // per-tick move as a fraction of the price
	Interval time.Duration
}

func (m *MockFeed) Start(ctx context.Context) {
	if m.Bus == nil || m.Manager == nil {
		log.Println("mock feed: bus or manager not set")
		return
	}
	if m.StepPct == 0 {
		m.StepPct = 0.02
	}
	if m.Interval == 0 {
		m.Interval = time.Second
	}

	prices := make(map[string]float64, len(m.Tokens))
	for _, token := range m.Tokens {
		if price, ok := m.Manager.GetPrice(token); ok {
			prices[token] = price.InexactFloat64()
		}
	}

	go func() {
		t := time.NewTicker(m.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				for _, token := range m.Tokens {
					price, ok := prices[token]
					if !ok || price <= 0 {
						continue
					}
					// simple random walk
					price *= 1 + (rand.Float64()*2-1)*m.StepPct
					prices[token] = price
					m.Manager.SetPrice(token, price)
					m.Bus.Publish(events.TopicPriceTick, events.PriceTick{
						TokenAddress: token,
						PriceUI:      price,
					})
				}
			}
		}
	}()
}
