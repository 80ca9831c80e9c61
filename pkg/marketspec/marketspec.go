package marketspec

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/gridhedge/internal/domain"
)

// Step 交易所步长（tickSize / qtyStep）解析结果
type Step struct {
	Value    float64
	Decimals int
}

// ParseStep 解析交易所返回的步长文本，例如 "0.10" -> {0.1, 2}。
// 小数位按文本中的小数位数计算（保留末尾 0），去掉千分位逗号与空格；
// 无法解析时返回零值。
func ParseStep(raw string) Step {
	s := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(raw))
	if s == "" {
		return Step{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Step{}
	}
	decimals := 0
	if exp := d.Exponent(); exp < 0 {
		decimals = int(-exp)
	}
	if decimals > domain.MaxDecimals {
		decimals = domain.MaxDecimals
	}
	return Step{Value: d.InexactFloat64(), Decimals: decimals}
}

// Normalize 把原始步长元数据转换成领域模型使用的 SymbolSpec
func Normalize(symbol, tickSize, qtyStep string) domain.SymbolSpec {
	tick := ParseStep(tickSize)
	qty := ParseStep(qtyStep)
	return domain.SymbolSpec{
		Symbol:         strings.ToUpper(strings.TrimSpace(symbol)),
		TickSize:       tick.Value,
		QtyStep:        qty.Value,
		PriceDecimals:  tick.Decimals,
		VolumeDecimals: qty.Decimals,
	}
}
