package editor

import (
	"strconv"

	"github.com/betbot/gridhedge/internal/domain"
)

// Field 可编辑字段标识
type Field string

const (
	FieldEntryPrice        Field = "entryPrice"
	FieldEntryVolume       Field = "entryVolume"
	FieldTpStep1           Field = "tpStep1"
	FieldTpStep2           Field = "tpStep2"
	FieldTp1Volume         Field = "tp1Volume"
	FieldTp2Volume         Field = "tp2Volume"
	FieldSlLongCount       Field = "slLongCount"
	FieldSlLongStep        Field = "slLongStep"
	FieldSlShortCount      Field = "slShortCount"
	FieldSlShortStep       Field = "slShortStep"
	FieldRefillLongPrice   Field = "refillLongPrice"
	FieldRefillLongVolume  Field = "refillLongVolume"
	FieldRefillShortPrice  Field = "refillShortPrice"
	FieldRefillShortVolume Field = "refillShortVolume"
)

// Category 决定字段的解析与格式化方式
type Category int

const (
	CategoryPrice Category = iota
	CategoryVolume
	CategoryPercent
	CategoryCount
)

// percentPlaces 百分比字段提交时保留的小数位
const percentPlaces = 2

var fieldCategories = map[Field]Category{
	FieldEntryPrice:        CategoryPrice,
	FieldEntryVolume:       CategoryVolume,
	FieldTpStep1:           CategoryPrice,
	FieldTpStep2:           CategoryPrice,
	FieldTp1Volume:         CategoryPercent,
	FieldTp2Volume:         CategoryPercent,
	FieldSlLongCount:       CategoryCount,
	FieldSlLongStep:        CategoryPrice,
	FieldSlShortCount:      CategoryCount,
	FieldSlShortStep:       CategoryPrice,
	FieldRefillLongPrice:   CategoryPrice,
	FieldRefillLongVolume:  CategoryVolume,
	FieldRefillShortPrice:  CategoryPrice,
	FieldRefillShortVolume: CategoryVolume,
}

// Fields returns every editable field in display order.
func Fields() []Field {
	return []Field{
		FieldEntryPrice, FieldEntryVolume,
		FieldTpStep1, FieldTp1Volume, FieldTpStep2, FieldTp2Volume,
		FieldSlLongCount, FieldSlLongStep, FieldSlShortCount, FieldSlShortStep,
		FieldRefillLongPrice, FieldRefillLongVolume, FieldRefillShortPrice, FieldRefillShortVolume,
	}
}

// Category returns how the field is parsed and formatted.
func (f Field) Category() Category { return fieldCategories[f] }

// Valid reports whether f names an editable field.
func (f Field) Valid() bool {
	_, ok := fieldCategories[f]
	return ok
}

// decimals 字段在给定品种下的小数位
func (f Field) decimals(inst domain.Instrument) int {
	switch f.Category() {
	case CategoryPrice:
		return inst.PriceDecimals
	case CategoryVolume:
		return inst.VolumeDecimals
	case CategoryPercent:
		return percentPlaces
	default:
		return 0
	}
}

// format 提交后的规范文本
func (f Field) format(v float64, inst domain.Instrument) string {
	switch f.Category() {
	case CategoryPercent:
		return formatPlain(v)
	case CategoryCount:
		return strconv.Itoa(int(v))
	default:
		return FormatWithDecimals(v, f.decimals(inst))
	}
}

// value 从已提交的品种中读出字段的数值
func (f Field) value(inst domain.Instrument) float64 {
	switch f {
	case FieldEntryPrice:
		return inst.EntryPriceUsdt
	case FieldEntryVolume:
		return inst.EntryVolumeUsdt
	case FieldTpStep1:
		return inst.TpLevels[0].StepUsdt
	case FieldTpStep2:
		return inst.TpLevels[1].StepUsdt
	case FieldTp1Volume:
		return inst.TpLevels[0].VolumePercent
	case FieldTp2Volume:
		return inst.TpLevels[1].VolumePercent
	case FieldSlLongCount:
		return float64(inst.SlLong.Count)
	case FieldSlLongStep:
		return inst.SlLong.StepUsdt
	case FieldSlShortCount:
		return float64(inst.SlShort.Count)
	case FieldSlShortStep:
		return inst.SlShort.StepUsdt
	case FieldRefillLongPrice:
		return inst.Refill.LongPriceUsdt
	case FieldRefillLongVolume:
		return inst.Refill.LongVolumeUsdt
	case FieldRefillShortPrice:
		return inst.Refill.ShortPriceUsdt
	case FieldRefillShortVolume:
		return inst.Refill.ShortVolumeUsdt
	}
	return 0
}

// Draft 每个可编辑字段的未提交文本。仅由当前编辑会话持有，从不持久化。
type Draft struct {
	values map[Field]string
}

// EmptyDraft 未选中品种时的空草稿
func EmptyDraft() Draft {
	d := Draft{values: make(map[Field]string, len(fieldCategories))}
	for f := range fieldCategories {
		d.values[f] = ""
	}
	return d
}

// InitializeDraft 按字段类别把已提交的品种格式化为文本
func InitializeDraft(inst domain.Instrument) Draft {
	d := EmptyDraft()
	for f := range fieldCategories {
		d.values[f] = f.format(f.value(inst), inst)
	}
	return d
}

// Get returns the draft text of f.
func (d Draft) Get(f Field) string { return d.values[f] }

// Set stores text verbatim.
func (d *Draft) Set(f Field, text string) {
	if d.values == nil {
		*d = EmptyDraft()
	}
	d.values[f] = text
}

// Clone returns an independent copy.
func (d Draft) Clone() Draft {
	out := Draft{values: make(map[Field]string, len(d.values))}
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}
