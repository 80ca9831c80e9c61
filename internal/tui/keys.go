package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betbot/gridhedge/internal/editor"
)

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case modeAdd:
		return m.handleAddKey(k)
	case modeConfirmDelete:
		return m.handleDeleteKey(k)
	case modeEdit:
		return m.handleEditKey(k)
	}
	return m.handleBrowseKey(k)
}

func (m Model) handleBrowseKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "enter", "tab", "e":
		inst, ok := m.current()
		if !ok {
			m.setError("No instrument selected")
			return m, nil
		}
		if inst.IsActive {
			m.setError("Instrument is active; deactivate it to edit")
			return m, nil
		}
		m.mode = modeEdit
		m.clampFocus()
	case " ":
		inst, ok := m.current()
		if !ok {
			return m, nil
		}
		cmd := m.enqueue(activeCmd(m.session, inst.Symbol, !inst.IsActive))
		return m, cmd
	case "r":
		inst, ok := m.current()
		if !ok {
			return m, nil
		}
		if inst.IsActive {
			m.setError("Instrument is active; deactivate it to edit")
			return m, nil
		}
		cmd := m.enqueue(refillCmd(m.session, inst.Symbol, !inst.Refill.Enabled))
		return m, cmd
	case "a":
		m.mode = modeAdd
		m.addInput = ""
	case "d":
		if _, ok := m.current(); ok {
			m.mode = modeConfirmDelete
		}
	case "s":
		return m, settingsCmd(m.store)
	}
	return m, nil
}

// handleEditKey 切换焦点或退出编辑即视为失焦，提交当前字段
func (m Model) handleEditKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	f, ok := m.focusedField()
	if !ok {
		m.mode = modeBrowse
		return m, nil
	}
	n := len(m.fields())

	switch k.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		cmd := m.enqueue(commitCmd(m.session, f))
		return m, cmd
	case tea.KeyTab, tea.KeyDown:
		m.focus = (m.focus + 1) % n
		cmd := m.enqueue(commitCmd(m.session, f))
		return m, cmd
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = (m.focus - 1 + n) % n
		cmd := m.enqueue(commitCmd(m.session, f))
		return m, cmd
	case tea.KeyEnter:
		cmd := m.enqueue(commitCmd(m.session, f))
		return m, cmd
	case tea.KeyBackspace:
		text := []rune(m.session.Text(f))
		if len(text) == 0 {
			return m, nil
		}
		return m.change(f, string(text[:len(text)-1]))
	case tea.KeyRunes:
		return m.change(f, m.session.Text(f)+string(k.Runes))
	}
	return m, nil
}

func (m Model) change(f editor.Field, text string) (tea.Model, tea.Cmd) {
	if err := m.session.OnFieldChange(f, text); err != nil {
		m.mode = modeBrowse
		m.setError(describe(err))
	}
	return m, nil
}

func (m Model) handleAddKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.addInput = ""
	case tea.KeyEnter:
		raw := m.addInput
		m.mode = modeBrowse
		m.addInput = ""
		if strings.TrimSpace(raw) == "" {
			return m, nil
		}
		return m, addCmd(m.store, raw)
	case tea.KeyBackspace:
		if r := []rune(m.addInput); len(r) > 0 {
			m.addInput = string(r[:len(r)-1])
		}
	case tea.KeyRunes:
		m.addInput += strings.ToUpper(string(k.Runes))
	}
	return m, nil
}

func (m Model) handleDeleteKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if k.String() != "y" {
		return m, nil
	}
	inst, ok := m.current()
	if !ok {
		return m, nil
	}
	return m, removeCmd(m.store, inst.Symbol)
}
