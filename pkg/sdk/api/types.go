package api

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/betbot/gridhedge/internal/domain"
	"github.com/betbot/gridhedge/pkg/marketspec"
)

// 后端以 JSON 字符串（也可能是数字）传输十进制数，线上结构统一用 decimal.Decimal，
// 转换成领域模型时再落到 float64。

// SymbolSpec is one entry of GET /specs/.
type SymbolSpec struct {
	Symbol   string `json:"symbol"`
	TickSize string `json:"tickSize"`
	QtyStep  string `json:"qtyStep"`
}

// ToDomain derives decimal counts from the step text.
func (s SymbolSpec) ToDomain() domain.SymbolSpec {
	return marketspec.Normalize(s.Symbol, s.TickSize, s.QtyStep)
}

type TakeProfitLevel struct {
	StepUsdt      decimal.Decimal `json:"stepUsdt"`
	VolumePercent decimal.Decimal `json:"volumePercent"`
}

type StopLossConfig struct {
	Count    decimal.Decimal `json:"count"`
	StepUsdt decimal.Decimal `json:"stepUsdt"`
}

type RefillConfig struct {
	Enabled         bool            `json:"enabled"`
	LongPriceUsdt   decimal.Decimal `json:"longPriceUsdt"`
	LongVolumeUsdt  decimal.Decimal `json:"longVolumeUsdt"`
	ShortPriceUsdt  decimal.Decimal `json:"shortPriceUsdt"`
	ShortVolumeUsdt decimal.Decimal `json:"shortVolumeUsdt"`
}

// Instrument is the wire form of domain.Instrument.
type Instrument struct {
	Symbol          string            `json:"symbol"`
	IsActive        bool              `json:"isActive"`
	EntryPriceUsdt  decimal.Decimal   `json:"entryPriceUsdt"`
	EntryVolumeUsdt decimal.Decimal   `json:"entryVolumeUsdt"`
	PriceDecimals   decimal.Decimal   `json:"priceDecimals"`
	VolumeDecimals  decimal.Decimal   `json:"volumeDecimals"`
	TickSize        decimal.Decimal   `json:"tickSize"`
	QtyStep         decimal.Decimal   `json:"qtyStep"`
	TpLevels        []TakeProfitLevel `json:"tpLevels"`
	SlLong          StopLossConfig    `json:"slLong"`
	SlShort         StopLossConfig    `json:"slShort"`
	Refill          RefillConfig      `json:"refill"`
}

// nonNegativeInt 四舍五入取整，负数归零
func nonNegativeInt(d decimal.Decimal) int {
	v := d.Round(0).IntPart()
	if v < 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// decimalsFromWire 精度取整并夹紧到 [0, domain.MaxDecimals]
func decimalsFromWire(d decimal.Decimal) int {
	if v := nonNegativeInt(d); v < domain.MaxDecimals {
		return v
	}
	return domain.MaxDecimals
}

// ToDomain 归一化后端返回的品种：缺失数值视为 0，精度与数量取非负整数
func (i Instrument) ToDomain() domain.Instrument {
	out := domain.Instrument{
		Symbol:          i.Symbol,
		IsActive:        i.IsActive,
		EntryPriceUsdt:  i.EntryPriceUsdt.InexactFloat64(),
		EntryVolumeUsdt: i.EntryVolumeUsdt.InexactFloat64(),
		PriceDecimals:   decimalsFromWire(i.PriceDecimals),
		VolumeDecimals:  decimalsFromWire(i.VolumeDecimals),
		TickSize:        i.TickSize.InexactFloat64(),
		QtyStep:         i.QtyStep.InexactFloat64(),
		SlLong: domain.StopLossConfig{
			Count:    nonNegativeInt(i.SlLong.Count),
			StepUsdt: i.SlLong.StepUsdt.InexactFloat64(),
		},
		SlShort: domain.StopLossConfig{
			Count:    nonNegativeInt(i.SlShort.Count),
			StepUsdt: i.SlShort.StepUsdt.InexactFloat64(),
		},
		Refill: i.Refill.toDomain(),
	}
	for idx := 0; idx < len(out.TpLevels) && idx < len(i.TpLevels); idx++ {
		out.TpLevels[idx] = domain.TakeProfitLevel{
			StepUsdt:      i.TpLevels[idx].StepUsdt.InexactFloat64(),
			VolumePercent: i.TpLevels[idx].VolumePercent.InexactFloat64(),
		}
	}
	return out
}

func (r RefillConfig) toDomain() domain.RefillConfig {
	return domain.RefillConfig{
		Enabled:         r.Enabled,
		LongPriceUsdt:   r.LongPriceUsdt.InexactFloat64(),
		LongVolumeUsdt:  r.LongVolumeUsdt.InexactFloat64(),
		ShortPriceUsdt:  r.ShortPriceUsdt.InexactFloat64(),
		ShortVolumeUsdt: r.ShortVolumeUsdt.InexactFloat64(),
	}
}

func refillFromDomain(r domain.RefillConfig) RefillConfig {
	return RefillConfig{
		Enabled:         r.Enabled,
		LongPriceUsdt:   decimal.NewFromFloat(r.LongPriceUsdt),
		LongVolumeUsdt:  decimal.NewFromFloat(r.LongVolumeUsdt),
		ShortPriceUsdt:  decimal.NewFromFloat(r.ShortPriceUsdt),
		ShortVolumeUsdt: decimal.NewFromFloat(r.ShortVolumeUsdt),
	}
}

func tpLevelsFromDomain(levels [2]domain.TakeProfitLevel) []TakeProfitLevel {
	out := make([]TakeProfitLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, TakeProfitLevel{
			StepUsdt:      decimal.NewFromFloat(l.StepUsdt),
			VolumePercent: decimal.NewFromFloat(l.VolumePercent),
		})
	}
	return out
}

func stopLossFromDomain(sl domain.StopLossConfig) StopLossConfig {
	return StopLossConfig{Count: decimal.NewFromInt(int64(sl.Count)), StepUsdt: decimal.NewFromFloat(sl.StepUsdt)}
}

// InstrumentFromDomain converts a domain instrument to its wire form.
func InstrumentFromDomain(i domain.Instrument) Instrument {
	return Instrument{
		Symbol:          i.Symbol,
		IsActive:        i.IsActive,
		EntryPriceUsdt:  decimal.NewFromFloat(i.EntryPriceUsdt),
		EntryVolumeUsdt: decimal.NewFromFloat(i.EntryVolumeUsdt),
		PriceDecimals:   decimal.NewFromInt(int64(i.PriceDecimals)),
		VolumeDecimals:  decimal.NewFromInt(int64(i.VolumeDecimals)),
		TickSize:        decimal.NewFromFloat(i.TickSize),
		QtyStep:         decimal.NewFromFloat(i.QtyStep),
		TpLevels:        tpLevelsFromDomain(i.TpLevels),
		SlLong:          stopLossFromDomain(i.SlLong),
		SlShort:         stopLossFromDomain(i.SlShort),
		Refill:          refillFromDomain(i.Refill),
	}
}

// InstrumentPatch is the PATCH /instruments/{symbol} body.
type InstrumentPatch struct {
	IsActive        *bool             `json:"isActive,omitempty"`
	EntryPriceUsdt  *decimal.Decimal  `json:"entryPriceUsdt,omitempty"`
	EntryVolumeUsdt *decimal.Decimal  `json:"entryVolumeUsdt,omitempty"`
	TpLevels        []TakeProfitLevel `json:"tpLevels,omitempty"`
	SlLong          *StopLossConfig   `json:"slLong,omitempty"`
	SlShort         *StopLossConfig   `json:"slShort,omitempty"`
	Refill          *RefillConfig     `json:"refill,omitempty"`
}

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

// PatchFromDomain converts a domain patch to its wire form.
func PatchFromDomain(p domain.InstrumentPatch) InstrumentPatch {
	out := InstrumentPatch{
		IsActive:        p.IsActive,
		EntryPriceUsdt:  decimalPtr(p.EntryPriceUsdt),
		EntryVolumeUsdt: decimalPtr(p.EntryVolumeUsdt),
	}
	if p.TpLevels != nil {
		out.TpLevels = tpLevelsFromDomain(*p.TpLevels)
	}
	if p.SlLong != nil {
		sl := stopLossFromDomain(*p.SlLong)
		out.SlLong = &sl
	}
	if p.SlShort != nil {
		sl := stopLossFromDomain(*p.SlShort)
		out.SlShort = &sl
	}
	if p.Refill != nil {
		r := refillFromDomain(*p.Refill)
		out.Refill = &r
	}
	return out
}

// ToDomain converts a wire patch back to the domain form. A tpLevels array
// that does not hold exactly two entries is reported by ok=false.
func (p InstrumentPatch) ToDomain() (out domain.InstrumentPatch, ok bool) {
	out.IsActive = p.IsActive
	if p.EntryPriceUsdt != nil {
		v := p.EntryPriceUsdt.InexactFloat64()
		out.EntryPriceUsdt = &v
	}
	if p.EntryVolumeUsdt != nil {
		v := p.EntryVolumeUsdt.InexactFloat64()
		out.EntryVolumeUsdt = &v
	}
	if p.TpLevels != nil {
		if len(p.TpLevels) != 2 {
			return out, false
		}
		var levels [2]domain.TakeProfitLevel
		for idx, l := range p.TpLevels {
			levels[idx] = domain.TakeProfitLevel{StepUsdt: l.StepUsdt.InexactFloat64(), VolumePercent: l.VolumePercent.InexactFloat64()}
		}
		out.TpLevels = &levels
	}
	if p.SlLong != nil {
		sl := domain.StopLossConfig{Count: int(p.SlLong.Count.IntPart()), StepUsdt: p.SlLong.StepUsdt.InexactFloat64()}
		out.SlLong = &sl
	}
	if p.SlShort != nil {
		sl := domain.StopLossConfig{Count: int(p.SlShort.Count.IntPart()), StepUsdt: p.SlShort.StepUsdt.InexactFloat64()}
		out.SlShort = &sl
	}
	if p.Refill != nil {
		r := p.Refill.toDomain()
		out.Refill = &r
	}
	return out, true
}

// SettingsStatus is the GET /settings/status body.
type SettingsStatus struct {
	Configured bool `json:"configured"`
}

// Settings 交易所凭证
type Settings struct {
	BybitAPIKey    string `json:"bybitApiKey"`
	BybitSecretKey string `json:"bybitSecretKey"`
}

// Configured reports whether both keys are set.
func (s Settings) Configured() bool {
	return trimmed(s.BybitAPIKey) != "" && trimmed(s.BybitSecretKey) != ""
}

// PasswordRequest is the POST /settings/authorize body.
type PasswordRequest struct {
	Password string `json:"password"`
}

// SettingsUpdate is the PUT /settings/ body; nil keys stay unchanged.
type SettingsUpdate struct {
	Password       string  `json:"password"`
	BybitAPIKey    *string `json:"bybitApiKey,omitempty"`
	BybitSecretKey *string `json:"bybitSecretKey,omitempty"`
}

// ErrorBody 后端错误响应体
type ErrorBody struct {
	Detail string `json:"detail"`
}
