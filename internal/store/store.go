package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/betbot/gridhedge/internal/domain"
	"github.com/betbot/gridhedge/internal/editor"
)

var log = logrus.WithField("module", "store")

var (
	// ErrInvalidSymbol 不是 XXXUSDT 形式的交易对
	ErrInvalidSymbol = errors.New("symbol must look like BTCUSDT")
	// ErrUnknownSymbol 交易所没有该 USDT 永续合约
	ErrUnknownSymbol = errors.New("symbol is not a listed USDT perpetual")
	// ErrDuplicateSymbol 品种已存在
	ErrDuplicateSymbol = errors.New("instrument already added")
	// ErrNotFound 本地集合中没有该品种
	ErrNotFound = errors.New("instrument not found")
)

// Backend 品种配置后端；*api.Client 与 *api.MockClient 都满足该接口
type Backend interface {
	GetSpecs(ctx context.Context) ([]domain.SymbolSpec, error)
	ListInstruments(ctx context.Context) ([]domain.Instrument, error)
	CreateInstrument(ctx context.Context, symbol string) (domain.Instrument, error)
	UpdateInstrument(ctx context.Context, symbol string, patch domain.InstrumentPatch) (domain.Instrument, error)
	DeleteInstrument(ctx context.Context, symbol string) error
	SettingsConfigured(ctx context.Context) (bool, error)
}

// Store 品种集合、交易对步长与当前选中项。
// 读操作返回副本，写操作以后端确认的结果为准。
type Store struct {
	backend Backend

	initMu sync.Mutex

	mu          sync.RWMutex
	instruments []domain.Instrument
	specs       map[string]domain.SymbolSpec
	current     string
	loaded      bool
}

var (
	_ editor.Updater      = (*Store)(nil)
	_ editor.SettingsGate = (*Store)(nil)
)

func New(backend Backend) *Store {
	return &Store{backend: backend, specs: make(map[string]domain.SymbolSpec)}
}

// Initialize 并发拉取步长与品种列表，并选中第一个品种。加载成功后重复调用不再请求。
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	var (
		specs       []domain.SymbolSpec
		instruments []domain.Instrument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		specs, err = s.backend.GetSpecs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		instruments, err = s.backend.ListInstruments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warnf("initialize failed: %v", err)
		return fmt.Errorf("initialize store: %w", err)
	}

	bySymbol := make(map[string]domain.SymbolSpec, len(specs))
	for _, spec := range specs {
		bySymbol[spec.Symbol] = spec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = bySymbol
	s.instruments = instruments
	s.current = ""
	if len(instruments) > 0 {
		s.current = instruments[0].Symbol
	}
	s.loaded = true
	log.Infof("store initialized: %d specs, %d instruments", len(bySymbol), len(instruments))
	return nil
}

// Loaded reports whether Initialize has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) List() []domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Instrument(nil), s.instruments...)
}

func (s *Store) indexOf(symbol string) int {
	for i, inst := range s.instruments {
		if inst.Symbol == symbol {
			return i
		}
	}
	return -1
}

func (s *Store) Get(symbol string) (domain.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(symbol); i >= 0 {
		return s.instruments[i], true
	}
	return domain.Instrument{}, false
}

// Current 返回当前选中的品种；没有选中时 ok=false
func (s *Store) Current() (domain.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return domain.Instrument{}, false
	}
	if i := s.indexOf(s.current); i >= 0 {
		return s.instruments[i], true
	}
	return domain.Instrument{}, false
}

// Select 切换选中品种；空字符串表示取消选择
func (s *Store) Select(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbol != "" && s.indexOf(symbol) < 0 {
		return fmt.Errorf("select %s: %w", symbol, ErrNotFound)
	}
	s.current = symbol
	return nil
}

// Spec returns the step metadata for symbol.
func (s *Store) Spec(symbol string) (domain.SymbolSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.specs[symbol]
	return spec, ok
}

// Add 校验并创建品种，追加到集合末尾
func (s *Store) Add(ctx context.Context, raw string) (domain.Instrument, error) {
	symbol := editor.NormalizeSymbol(raw)
	if !editor.IsValidSymbol(symbol) {
		return domain.Instrument{}, ErrInvalidSymbol
	}
	if err := s.Initialize(ctx); err != nil {
		return domain.Instrument{}, err
	}
	if _, ok := s.Spec(symbol); !ok {
		return domain.Instrument{}, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	if _, ok := s.Get(symbol); ok {
		return domain.Instrument{}, fmt.Errorf("%s: %w", symbol, ErrDuplicateSymbol)
	}

	inst, err := s.backend.CreateInstrument(ctx, symbol)
	if err != nil {
		return domain.Instrument{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(inst.Symbol); i >= 0 {
		s.instruments[i] = inst
	} else {
		s.instruments = append(s.instruments, inst)
	}
	log.Infof("instrument added: %s", inst.Symbol)
	return inst, nil
}

// Remove 删除品种；删除的是当前选中项时改选剩余的第一个
func (s *Store) Remove(ctx context.Context, symbol string) error {
	if err := s.backend.DeleteInstrument(ctx, symbol); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]domain.Instrument, 0, len(s.instruments))
	for _, inst := range s.instruments {
		if inst.Symbol != symbol {
			kept = append(kept, inst)
		}
	}
	s.instruments = kept
	if s.current == symbol {
		s.current = ""
		if len(kept) > 0 {
			s.current = kept[0].Symbol
		}
	}
	log.Infof("instrument removed: %s", symbol)
	return nil
}

// Update 提交部分更新，用后端返回的品种替换本地条目
func (s *Store) Update(ctx context.Context, symbol string, patch domain.InstrumentPatch) (domain.Instrument, error) {
	updated, err := s.backend.UpdateInstrument(ctx, symbol, patch)
	if err != nil {
		log.WithField("symbol", symbol).Warnf("update failed: %v", err)
		return domain.Instrument{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(symbol); i >= 0 {
		s.instruments[i] = updated
	}
	return updated, nil
}

func (s *Store) SettingsConfigured(ctx context.Context) (bool, error) {
	return s.backend.SettingsConfigured(ctx)
}
