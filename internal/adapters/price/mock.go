package price

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

// MockService returns a price drawn uniformly from [Min, Min+Spread)
type MockService struct {
	Min    float64
	Spread float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockService reproduces the demo feed: 0.40 to 0.50, two decimals
func NewMockService(seed int64) *MockService {
	return &MockService{Min: 0.40, Spread: 0.10, rnd: rand.New(rand.NewSource(seed))}
}

func (m *MockService) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	v := m.Min + m.rnd.Float64()*m.Spread
	m.mu.Unlock()
	return math.Round(v*100) / 100, nil
}
