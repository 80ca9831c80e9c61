package api

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/betbot/gridhedge/internal/domain"
)

// ErrMockNotFound 模拟后端中不存在的品种
var ErrMockNotFound = errors.New("instrument not found")

// MockClient is an in-memory stand-in for Client used in tests.
type MockClient struct {
	mu sync.RWMutex

	// Response data
	Specs       []domain.SymbolSpec
	Instruments []domain.Instrument
	Configured  bool

	// Call tracking
	Calls   map[string]int
	Patches []domain.InstrumentPatch

	// Error injection
	ErrorOnNext map[string]error
}

// NewMockClient creates a mock backend seeded with specs.
func NewMockClient(specs ...domain.SymbolSpec) *MockClient {
	return &MockClient{
		Specs:       specs,
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

// trackCall 调用方需持有写锁
func (m *MockClient) trackCall(name string) error {
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

// CallCount returns how often name was invoked.
func (m *MockClient) CallCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls[name]
}

// FailNext makes the next call to name return err.
func (m *MockClient) FailNext(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorOnNext[name] = err
}

func (m *MockClient) GetSpecs(ctx context.Context) ([]domain.SymbolSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("GetSpecs"); err != nil {
		return nil, err
	}
	return append([]domain.SymbolSpec(nil), m.Specs...), nil
}

func (m *MockClient) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("ListInstruments"); err != nil {
		return nil, err
	}
	return append([]domain.Instrument(nil), m.Instruments...), nil
}

func (m *MockClient) CreateInstrument(ctx context.Context, symbol string) (domain.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("CreateInstrument"); err != nil {
		return domain.Instrument{}, err
	}
	var spec domain.SymbolSpec
	for _, s := range m.Specs {
		if s.Symbol == symbol {
			spec = s
		}
	}
	inst := domain.DefaultInstrument(symbol, spec)
	m.Instruments = append(m.Instruments, inst)
	return inst, nil
}

func (m *MockClient) UpdateInstrument(ctx context.Context, symbol string, patch domain.InstrumentPatch) (domain.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("UpdateInstrument"); err != nil {
		return domain.Instrument{}, err
	}
	m.Patches = append(m.Patches, patch)
	for i, inst := range m.Instruments {
		if inst.Symbol == symbol {
			m.Instruments[i] = inst.Apply(patch)
			return m.Instruments[i], nil
		}
	}
	return domain.Instrument{}, ErrMockNotFound
}

func (m *MockClient) DeleteInstrument(ctx context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("DeleteInstrument"); err != nil {
		return err
	}
	kept := m.Instruments[:0]
	for _, inst := range m.Instruments {
		if inst.Symbol != symbol {
			kept = append(kept, inst)
		}
	}
	m.Instruments = kept
	return nil
}

func (m *MockClient) SettingsConfigured(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("SettingsConfigured"); err != nil {
		return false, err
	}
	return m.Configured, nil
}
