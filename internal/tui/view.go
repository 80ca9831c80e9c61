package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/gridhedge/internal/domain"
	"github.com/betbot/gridhedge/internal/editor"
)

type section struct {
	title  string
	fields []editor.Field
	refill bool
}

var sections = []section{
	{title: "Entry", fields: []editor.Field{editor.FieldEntryPrice, editor.FieldEntryVolume}},
	{title: "Take profit", fields: []editor.Field{editor.FieldTpStep1, editor.FieldTp1Volume, editor.FieldTpStep2, editor.FieldTp2Volume}},
	{title: "Stop loss", fields: []editor.Field{editor.FieldSlLongCount, editor.FieldSlLongStep, editor.FieldSlShortCount, editor.FieldSlShortStep}},
	{title: "Refill", refill: true, fields: []editor.Field{editor.FieldRefillLongPrice, editor.FieldRefillLongVolume, editor.FieldRefillShortPrice, editor.FieldRefillShortVolume}},
}

var fieldLabels = map[editor.Field]string{
	editor.FieldEntryPrice:        "Entry price, USDT",
	editor.FieldEntryVolume:       "Entry volume, USDT",
	editor.FieldTpStep1:           "TP1 step, USDT",
	editor.FieldTp1Volume:         "TP1 volume, %",
	editor.FieldTpStep2:           "TP2 step, USDT",
	editor.FieldTp2Volume:         "TP2 volume, %",
	editor.FieldSlLongCount:       "SL Long count",
	editor.FieldSlLongStep:        "SL Long step, USDT",
	editor.FieldSlShortCount:      "SL Short count",
	editor.FieldSlShortStep:       "SL Short step, USDT",
	editor.FieldRefillLongPrice:   "Refill Long price, USDT",
	editor.FieldRefillLongVolume:  "Refill Long volume, USDT",
	editor.FieldRefillShortPrice:  "Refill Short price, USDT",
	editor.FieldRefillShortVolume: "Refill Short volume, USDT",
}

// activationFields 激活校验返回的字段 id -> 编辑字段
var activationFields = map[string]editor.Field{
	"entryPriceUsdt":    editor.FieldEntryPrice,
	"entryVolumeUsdt":   editor.FieldEntryVolume,
	"tp1Step":           editor.FieldTpStep1,
	"tp2Step":           editor.FieldTpStep2,
	"slLongStep":        editor.FieldSlLongStep,
	"slShortStep":       editor.FieldSlShortStep,
	"refillLongPrice":   editor.FieldRefillLongPrice,
	"refillLongVolume":  editor.FieldRefillLongVolume,
	"refillShortPrice":  editor.FieldRefillShortPrice,
	"refillShortVolume": editor.FieldRefillShortVolume,
}

func label(f editor.Field) string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

var (
	accent       = lipgloss.Color("39")
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(accent)
	selectStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	paneStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	labelWidth   = 26
	listMinWidth = 18
)

func (m Model) View() string {
	if m.loading {
		return "Loading instruments..."
	}

	width := m.width - 4
	if width < 70 {
		width = 70
	}
	listWidth := width / 4
	if listWidth < listMinWidth {
		listWidth = listMinWidth
	}
	cardWidth := width - listWidth - 2

	var rows []string
	rows = append(rows, headerStyle.Render("Grid hedge instruments"))
	if !m.configured {
		rows = append(rows, warnStyle.Render("Exchange API keys are not configured: instruments cannot be activated"))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderList(listWidth), "  ", m.renderCard(cardWidth)))
	rows = append(rows, m.renderStatus())
	rows = append(rows, mutedStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderList(width int) string {
	lines := []string{titleStyle.Render("Instruments"), strings.Repeat("─", width-4)}
	cur, hasCur := m.current()
	list := m.store.List()
	if len(list) == 0 {
		lines = append(lines, mutedStyle.Render("none, press a"))
	}
	for _, inst := range list {
		marker := "  "
		style := lipgloss.NewStyle()
		if hasCur && inst.Symbol == cur.Symbol {
			marker = "> "
			style = selectStyle
		}
		line := marker + inst.Symbol
		if inst.IsActive {
			line += " ●"
		}
		lines = append(lines, style.Render(line))
	}
	if m.mode == modeAdd {
		lines = append(lines, "", "Symbol: "+m.addInput+"_")
	}
	return paneStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCard(width int) string {
	inst, ok := m.current()
	if !ok {
		return paneStyle.Width(width).Render(mutedStyle.Render("Select or add an instrument"))
	}

	state := mutedStyle.Render("inactive")
	if inst.IsActive {
		state = activeStyle.Render("ACTIVE (read-only)")
	}
	lines := []string{
		titleStyle.Render(inst.Symbol) + "  " + state,
		mutedStyle.Render(fmt.Sprintf("tick %s (%d dp)  qty step %s (%d dp)",
			editor.FormatWithDecimals(inst.TickSize, inst.PriceDecimals), inst.PriceDecimals,
			editor.FormatWithDecimals(inst.QtyStep, inst.VolumeDecimals), inst.VolumeDecimals)),
	}

	focused, hasFocus := m.focusedField()
	hasFocus = hasFocus && m.mode == modeEdit
	for _, sec := range sections {
		lines = append(lines, "", m.sectionTitle(sec, inst), strings.Repeat("─", width-4))
		if sec.refill && !inst.Refill.Enabled {
			continue
		}
		for _, f := range sec.fields {
			text := m.session.Text(f)
			value := text
			if hasFocus && f == focused {
				value = focusStyle.Render(text + "_")
			}
			lines = append(lines, fmt.Sprintf("%-*s %s", labelWidth, label(f), value))
		}
	}
	return paneStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) sectionTitle(sec section, inst domain.Instrument) string {
	if !sec.refill {
		return titleStyle.Render(sec.title)
	}
	state := "off"
	if inst.Refill.Enabled {
		state = "on"
	}
	return titleStyle.Render(sec.title) + mutedStyle.Render(" ["+state+"]")
}

func (m Model) renderStatus() string {
	if m.mode == modeConfirmDelete {
		if inst, ok := m.current(); ok {
			return warnStyle.Render(fmt.Sprintf("Delete %s? (y/n)", inst.Symbol))
		}
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return m.status
}

func (m Model) help() string {
	switch m.mode {
	case modeEdit:
		return "tab/shift+tab: next/prev field (saves)  enter: save  esc: done"
	case modeAdd:
		return "type symbol, enter: add  esc: cancel"
	case modeConfirmDelete:
		return "y: delete  any other key: cancel"
	}
	return "↑/↓: select  enter: edit  space: activate/deactivate  r: refill  a: add  d: delete  s: refresh keys  q: quit"
}
