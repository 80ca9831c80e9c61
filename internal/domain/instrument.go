package domain

import (
	"fmt"
	"math"
)

const (
	// TakeProfitTotalPercent 两个止盈层级的成交量百分比之和
	TakeProfitTotalPercent = 100.0
	// TakeProfitMinPercent / TakeProfitMaxPercent 单个止盈层级的百分比范围
	TakeProfitMinPercent = 1.0
	TakeProfitMaxPercent = 99.0

	// StopLossMinCount / StopLossMaxCount 单侧止损数量范围
	StopLossMinCount = 1
	StopLossMaxCount = 10
	// StopLossMaxTotal 多空两侧止损数量之和上限
	StopLossMaxTotal = 10

	// MaxDecimals 价格/数量精度上限
	MaxDecimals = 10

	sumTolerance = 1e-6
)

// TakeProfitLevel 单个止盈层级
type TakeProfitLevel struct {
	StepUsdt      float64 `json:"stepUsdt"`
	VolumePercent float64 `json:"volumePercent"`
}

// StopLossConfig 单侧止损阶梯
type StopLossConfig struct {
	Count    int     `json:"count"`
	StepUsdt float64 `json:"stepUsdt"`
}

// RefillConfig 补仓（加仓）规则；Enabled=false 时其余字段无意义
type RefillConfig struct {
	Enabled         bool    `json:"enabled"`
	LongPriceUsdt   float64 `json:"longPriceUsdt"`
	LongVolumeUsdt  float64 `json:"longVolumeUsdt"`
	ShortPriceUsdt  float64 `json:"shortPriceUsdt"`
	ShortVolumeUsdt float64 `json:"shortVolumeUsdt"`
}

// Instrument 单个交易品种的完整网格/对冲配置。
// 值类型：任何修改都通过 Apply 产生新值，不在原值上改动。
type Instrument struct {
	Symbol          string             `json:"symbol"`
	IsActive        bool               `json:"isActive"`
	EntryPriceUsdt  float64            `json:"entryPriceUsdt"`
	EntryVolumeUsdt float64            `json:"entryVolumeUsdt"`
	PriceDecimals   int                `json:"priceDecimals"`
	VolumeDecimals  int                `json:"volumeDecimals"`
	TickSize        float64            `json:"tickSize"`
	QtyStep         float64            `json:"qtyStep"`
	TpLevels        [2]TakeProfitLevel `json:"tpLevels"`
	SlLong          StopLossConfig     `json:"slLong"`
	SlShort         StopLossConfig     `json:"slShort"`
	Refill          RefillConfig       `json:"refill"`
}

// InstrumentPatch 部分更新；nil 字段表示不修改
type InstrumentPatch struct {
	IsActive        *bool               `json:"isActive,omitempty"`
	EntryPriceUsdt  *float64            `json:"entryPriceUsdt,omitempty"`
	EntryVolumeUsdt *float64            `json:"entryVolumeUsdt,omitempty"`
	TpLevels        *[2]TakeProfitLevel `json:"tpLevels,omitempty"`
	SlLong          *StopLossConfig     `json:"slLong,omitempty"`
	SlShort         *StopLossConfig     `json:"slShort,omitempty"`
	Refill          *RefillConfig       `json:"refill,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p InstrumentPatch) IsEmpty() bool {
	return p.IsActive == nil && p.EntryPriceUsdt == nil && p.EntryVolumeUsdt == nil &&
		p.TpLevels == nil && p.SlLong == nil && p.SlShort == nil && p.Refill == nil
}

// Apply 返回应用 patch 之后的新 Instrument
func (i Instrument) Apply(p InstrumentPatch) Instrument {
	out := i
	if p.IsActive != nil {
		out.IsActive = *p.IsActive
	}
	if p.EntryPriceUsdt != nil {
		out.EntryPriceUsdt = *p.EntryPriceUsdt
	}
	if p.EntryVolumeUsdt != nil {
		out.EntryVolumeUsdt = *p.EntryVolumeUsdt
	}
	if p.TpLevels != nil {
		out.TpLevels = *p.TpLevels
	}
	if p.SlLong != nil {
		out.SlLong = *p.SlLong
	}
	if p.SlShort != nil {
		out.SlShort = *p.SlShort
	}
	if p.Refill != nil {
		out.Refill = *p.Refill
	}
	return out
}

// CheckConsistency 检查止盈/止损的配对约束（后端在每次更新时执行）
func (i Instrument) CheckConsistency() error {
	tpSum := i.TpLevels[0].VolumePercent + i.TpLevels[1].VolumePercent
	if math.Abs(tpSum-TakeProfitTotalPercent) > sumTolerance {
		return fmt.Errorf("sum of TP volumes must be %v, got %v", TakeProfitTotalPercent, tpSum)
	}
	for _, sl := range []StopLossConfig{i.SlLong, i.SlShort} {
		if sl.Count < StopLossMinCount || sl.Count > StopLossMaxCount {
			return fmt.Errorf("SL count must be within [%d, %d], got %d", StopLossMinCount, StopLossMaxCount, sl.Count)
		}
	}
	if total := i.SlLong.Count + i.SlShort.Count; total > StopLossMaxTotal {
		return fmt.Errorf("total SL count must be <= %d, got %d", StopLossMaxTotal, total)
	}
	return nil
}

// SymbolSpec 交易所给出的品种步长元数据（已解析）
type SymbolSpec struct {
	Symbol         string
	TickSize       float64
	QtyStep        float64
	PriceDecimals  int
	VolumeDecimals int
}

// DefaultInstrument 新建品种时的默认配置：止盈 50/50，止损 5/5，补仓关闭
func DefaultInstrument(symbol string, spec SymbolSpec) Instrument {
	return Instrument{
		Symbol:         symbol,
		PriceDecimals:  spec.PriceDecimals,
		VolumeDecimals: spec.VolumeDecimals,
		TickSize:       spec.TickSize,
		QtyStep:        spec.QtyStep,
		TpLevels: [2]TakeProfitLevel{
			{VolumePercent: 50},
			{VolumePercent: 50},
		},
		SlLong:  StopLossConfig{Count: 5},
		SlShort: StopLossConfig{Count: 5},
	}
}
