package editor

import (
	"math"

	"github.com/betbot/gridhedge/internal/domain"
)

const sumTolerance = 1e-6

// Relation is the constraint a resolved pair must satisfy.
type Relation struct {
	target  float64
	ceiling bool
}

// SumEquals requires v1+v2 == total.
func SumEquals(total float64) Relation { return Relation{target: total} }

// SumAtMost requires v1+v2 <= ceiling.
func SumAtMost(ceiling float64) Relation { return Relation{target: ceiling, ceiling: true} }

func (r Relation) holds(sum float64) bool {
	if r.ceiling {
		return sum <= r.target+sumTolerance
	}
	return math.Abs(sum-r.target) < sumTolerance
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	return math.Max(min, math.Min(max, v))
}

// ResolvePair 在区间 [min, max] 与 rel 约束下协调两个相互依赖的值。
// 两个值先各自夹紧；若和已满足约束则原样返回，否则只重算未被编辑的一侧，
// 被编辑一侧保持其夹紧后的值。
func ResolvePair(v1, v2 float64, changedFirst bool, min, max float64, rel Relation) (float64, float64) {
	c1 := clamp(v1, min, max)
	c2 := clamp(v2, min, max)
	if rel.holds(c1 + c2) {
		return c1, c2
	}
	if changedFirst {
		return c1, clamp(rel.target-c1, min, max)
	}
	return clamp(rel.target-c2, min, max), c2
}

// ResolveTakeProfitVolumes 两个止盈百分比：各自 [1,99]，和为 100
func ResolveTakeProfitVolumes(tp1, tp2 float64, changedFirst bool) (float64, float64) {
	return ResolvePair(tp1, tp2, changedFirst,
		domain.TakeProfitMinPercent, domain.TakeProfitMaxPercent,
		SumEquals(domain.TakeProfitTotalPercent))
}

// ResolveStopLossCounts 多空止损数量：各自 [1,10]，和不超过 10。
// 入参是解析后的原始数值，先截断小数并在浮点域内夹紧，再转换为整数，
// 超出 int 范围的输入也会落到上限。
func ResolveStopLossCounts(long, short float64, changedLong bool) (int, int) {
	l, s := ResolvePair(math.Trunc(long), math.Trunc(short), changedLong,
		domain.StopLossMinCount, domain.StopLossMaxCount,
		SumAtMost(domain.StopLossMaxTotal))
	return int(l), int(s)
}
