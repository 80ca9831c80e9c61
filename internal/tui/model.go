package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridhedge/internal/domain"
	"github.com/betbot/gridhedge/internal/editor"
	"github.com/betbot/gridhedge/internal/store"
	"github.com/betbot/gridhedge/pkg/sdk/api"
)

var log = logrus.WithField("module", "tui")

// requestTimeout 单次后端请求的超时
const requestTimeout = 15 * time.Second

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeAdd
	modeConfirmDelete
)

// Model 品种列表 + 配置卡片
type Model struct {
	store   *store.Store
	session *editor.Session

	mode     mode
	focus    int
	addInput string

	// busy 有一个会话操作在途；其余操作按 FIFO 排队，保证提交顺序
	busy  bool
	queue []tea.Cmd

	status     string
	statusErr  bool
	configured bool
	loading    bool

	width  int
	height int
}

func New(st *store.Store, sess *editor.Session) Model {
	return Model{
		store:      st,
		session:    sess,
		loading:    true,
		configured: true,
	}
}

type initDoneMsg struct{ err error }

type settingsMsg struct {
	configured bool
	err        error
}

type commitDoneMsg struct {
	field editor.Field
	err   error
}

type actionDoneMsg struct {
	action string
	symbol string
	err    error
}

// queuedMsg 包装排队命令的结果，处理时启动队列中的下一个命令
type queuedMsg struct{ msg tea.Msg }

func (m Model) Init() tea.Cmd {
	return tea.Batch(initCmd(m.store), settingsCmd(m.store))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case initDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.setError("Failed to load instruments: " + api.ErrorMessage(msg.err))
			return m, nil
		}
		m.syncSession()
		m.setStatus(fmt.Sprintf("Loaded %d instruments", len(m.store.List())))
		return m, nil

	case settingsMsg:
		if msg.err != nil {
			log.Warnf("settings status: %v", msg.err)
			return m, nil
		}
		m.configured = msg.configured
		return m, nil

	case commitDoneMsg:
		if msg.err != nil {
			m.setError(describe(msg.err))
			return m, nil
		}
		m.setStatus("Saved " + label(msg.field))
		return m, nil

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case queuedMsg:
		next := m.dequeue()
		updated, cmd := m.Update(msg.msg)
		switch {
		case next == nil:
			return updated, cmd
		case cmd == nil:
			return updated, next
		}
		return updated, tea.Batch(cmd, next)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, editor.ErrCredentialsMissing) {
			m.configured = false
		}
		var ae *editor.ActivationError
		if errors.As(msg.err, &ae) {
			if f, ok := activationFields[ae.Field]; ok {
				m.focusField(f)
				m.mode = modeEdit
			}
		}
		m.setError(describe(msg.err))
		return m, nil
	}

	switch msg.action {
	case "add":
		if err := m.store.Select(msg.symbol); err != nil {
			log.Warnf("select added instrument: %v", err)
		}
		m.syncSession()
		m.setStatus("Added " + msg.symbol)
	case "remove":
		m.syncSession()
		m.setStatus("Removed " + msg.symbol)
	case "activate":
		m.configured = true
		m.setStatus(msg.symbol + " activated")
	case "deactivate":
		m.setStatus(msg.symbol + " deactivated")
	case "refill":
		m.setStatus("Refill updated")
	}
	return m, nil
}

// enqueue 串行执行会打到编辑会话的命令：空闲时立即返回，否则排队等待前一个完成
func (m *Model) enqueue(cmd tea.Cmd) tea.Cmd {
	wrapped := func() tea.Msg { return queuedMsg{msg: cmd()} }
	if m.busy {
		m.queue = append(m.queue[:len(m.queue):len(m.queue)], wrapped)
		return nil
	}
	m.busy = true
	return wrapped
}

func (m *Model) dequeue() tea.Cmd {
	if len(m.queue) == 0 {
		m.busy = false
		return nil
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	return next
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

// syncSession 让编辑会话跟随 store 的当前选中项
func (m *Model) syncSession() {
	if cur, ok := m.store.Current(); ok {
		m.session.Select(&cur)
	} else {
		m.session.Select(nil)
		m.mode = modeBrowse
	}
	m.clampFocus()
}

func (m *Model) moveSelection(delta int) {
	list := m.store.List()
	if len(list) == 0 {
		return
	}
	idx := 0
	if cur, ok := m.store.Current(); ok {
		for i, inst := range list {
			if inst.Symbol == cur.Symbol {
				idx = i
				break
			}
		}
		idx += delta
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(list) {
		idx = len(list) - 1
	}
	if err := m.store.Select(list[idx].Symbol); err != nil {
		log.Warnf("select: %v", err)
		return
	}
	m.syncSession()
}

// fields 当前可聚焦的字段；补仓关闭时不含补仓字段
func (m Model) fields() []editor.Field {
	inst, ok := m.session.Instrument()
	if !ok {
		return nil
	}
	var out []editor.Field
	for _, sec := range sections {
		if sec.refill && !inst.Refill.Enabled {
			continue
		}
		out = append(out, sec.fields...)
	}
	return out
}

func (m Model) focusedField() (editor.Field, bool) {
	fields := m.fields()
	if len(fields) == 0 || m.focus < 0 || m.focus >= len(fields) {
		return "", false
	}
	return fields[m.focus], true
}

func (m *Model) focusField(f editor.Field) {
	for i, candidate := range m.fields() {
		if candidate == f {
			m.focus = i
			return
		}
	}
}

func (m *Model) clampFocus() {
	n := len(m.fields())
	if m.focus >= n {
		m.focus = n - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
}

func (m Model) current() (domain.Instrument, bool) {
	return m.session.Instrument()
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func initCmd(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return initDoneMsg{err: st.Initialize(ctx)}
	}
}

func settingsCmd(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		ok, err := st.SettingsConfigured(ctx)
		return settingsMsg{configured: ok, err: err}
	}
}

func commitCmd(sess *editor.Session, f editor.Field) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return commitDoneMsg{field: f, err: sess.OnFieldCommit(ctx, f)}
	}
}

func addCmd(st *store.Store, raw string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		inst, err := st.Add(ctx, raw)
		return actionDoneMsg{action: "add", symbol: inst.Symbol, err: err}
	}
}

func removeCmd(st *store.Store, symbol string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{action: "remove", symbol: symbol, err: st.Remove(ctx, symbol)}
	}
}

func activeCmd(sess *editor.Session, symbol string, active bool) tea.Cmd {
	action := "deactivate"
	if active {
		action = "activate"
	}
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{action: action, symbol: symbol, err: sess.SetActive(ctx, active)}
	}
}

func refillCmd(sess *editor.Session, symbol string, enabled bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		return actionDoneMsg{action: "refill", symbol: symbol, err: sess.SetRefillEnabled(ctx, enabled)}
	}
}

// describe 把错误转换成状态栏文本
func describe(err error) string {
	var ae *editor.ActivationError
	var ce *editor.CommitError
	switch {
	case errors.As(err, &ae):
		return ae.Message
	case errors.Is(err, editor.ErrCredentialsMissing):
		return "Configure exchange API keys before activating"
	case errors.Is(err, editor.ErrReadOnly):
		return "Instrument is active; deactivate it to edit"
	case errors.Is(err, editor.ErrNoInstrument):
		return "No instrument selected"
	case errors.Is(err, store.ErrInvalidSymbol),
		errors.Is(err, store.ErrUnknownSymbol),
		errors.Is(err, store.ErrDuplicateSymbol):
		return err.Error()
	case errors.As(err, &ce):
		return fmt.Sprintf("Failed to save %s: %s", label(ce.Field), api.ErrorMessage(ce.Err))
	}
	return api.ErrorMessage(err)
}
