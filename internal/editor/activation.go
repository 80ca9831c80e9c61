package editor

import (
	"fmt"

	"github.com/betbot/gridhedge/internal/domain"
)

// ActivationResult 激活前校验结果；Valid=false 时 Field/Message 指向第一个不满足的字段
type ActivationResult struct {
	Valid   bool
	Field   string
	Message string
}

// ActivationError is returned by Session.SetActive when a precondition fails.
type ActivationError struct {
	Field   string
	Message string
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activation blocked (%s): %s", e.Field, e.Message)
}

type activationCheck struct {
	field   string
	message string
	value   func(domain.Instrument) float64
}

var baseChecks = []activationCheck{
	{"entryPriceUsdt", "Entry price must be greater than zero", func(i domain.Instrument) float64 { return i.EntryPriceUsdt }},
	{"entryVolumeUsdt", "Entry volume must be greater than zero", func(i domain.Instrument) float64 { return i.EntryVolumeUsdt }},
	{"tp1Step", "TP1 step must be greater than zero", func(i domain.Instrument) float64 { return i.TpLevels[0].StepUsdt }},
	{"tp2Step", "TP2 step must be greater than zero", func(i domain.Instrument) float64 { return i.TpLevels[1].StepUsdt }},
	{"slLongStep", "SL Long step must be greater than zero", func(i domain.Instrument) float64 { return i.SlLong.StepUsdt }},
	{"slShortStep", "SL Short step must be greater than zero", func(i domain.Instrument) float64 { return i.SlShort.StepUsdt }},
}

var refillChecks = []activationCheck{
	{"refillLongPrice", "Refill Long price must be greater than zero", func(i domain.Instrument) float64 { return i.Refill.LongPriceUsdt }},
	{"refillLongVolume", "Refill Long volume must be greater than zero", func(i domain.Instrument) float64 { return i.Refill.LongVolumeUsdt }},
	{"refillShortPrice", "Refill Short price must be greater than zero", func(i domain.Instrument) float64 { return i.Refill.ShortPriceUsdt }},
	{"refillShortVolume", "Refill Short volume must be greater than zero", func(i domain.Instrument) float64 { return i.Refill.ShortVolumeUsdt }},
}

// ValidateBeforeActivation 按固定顺序检查激活前置条件，遇到第一个失败即返回。
// 不检查止盈/止损的配对约束，那部分在每次提交时已经保证。
func ValidateBeforeActivation(inst domain.Instrument) ActivationResult {
	checks := baseChecks
	if inst.Refill.Enabled {
		checks = append(append([]activationCheck{}, baseChecks...), refillChecks...)
	}
	for _, c := range checks {
		if !(c.value(inst) > 0) {
			return ActivationResult{Valid: false, Field: c.field, Message: c.message}
		}
	}
	return ActivationResult{Valid: true}
}
