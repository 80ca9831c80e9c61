package editor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	symbolRe        = regexp.MustCompile(`^[A-Z]{3,12}USDT$`)
	numericPrefixRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// NormalizeSymbol 去空白并转大写
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsValidSymbol 校验品种代码：3~12 个字母 + USDT（大小写不敏感）
func IsValidSymbol(s string) bool {
	return symbolRe.MatchString(strings.ToUpper(s))
}

// EnsurePositive 返回绝对值（符号无意义的字段用）
func EnsurePositive(v float64) float64 {
	return math.Abs(v)
}

// FormatWithDecimals 以固定小数位输出；decimals<=0 输出整数形式，非数值返回空串
func FormatWithDecimals(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromFloat(v).StringFixed(int32(decimals))
}

// formatPlain 最短十进制表示（百分比字段）
func formatPlain(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).String()
}

// ParseLenient 宽松解析：取文本开头的数字部分，逗号视为小数点；
// 空串、无法解析或非有限值一律视为 0。
func ParseLenient(text string) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if s == "" {
		return 0
	}
	if m := numericPrefixRe.FindString(s); m != "" {
		s = m
	} else {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// roundTo 按 decimal 精度四舍五入，避免二进制浮点尾差（如 29.700000000000003）
func roundTo(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}
