package shutdown

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "shutdown")

// Handler 关闭回调，应在 ctx 到期前返回
type Handler func(ctx context.Context) error

type namedHandler struct {
	name string
	fn   Handler
}

// Manager 优雅关闭管理器
type Manager struct {
	mu        sync.Mutex
	callbacks []namedHandler
	done      bool
}

func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, namedHandler{name: name, fn: handler})
}

// Shutdown 并发执行所有回调并等待完成或 ctx 超时。
// 只执行一次，重复调用直接返回 nil。返回第一个失败回调的错误。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	callbacks := m.callbacks
	m.mu.Unlock()

	if len(callbacks) == 0 {
		log.Info("没有注册的关闭回调")
		return nil
	}
	log.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	errCh := make(chan error, len(callbacks))
	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(h namedHandler) {
			defer wg.Done()
			if err := h.fn(ctx); err != nil {
				log.Warnf("关闭回调 %s 失败: %v", h.name, err)
				errCh <- errors.Wrapf(err, "shutdown %s", h.name)
			}
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("所有关闭回调已完成")
	case <-ctx.Done():
		log.Warnf("关闭超时: %v", ctx.Err())
		return errors.Wrap(ctx.Err(), "shutdown timed out")
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
