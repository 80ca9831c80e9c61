package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/betbot/gridhedge/internal/domain"
)

var sessionLog = logrus.WithField("module", "editor.session")

var (
	// ErrNoInstrument 当前没有选中的品种
	ErrNoInstrument = errors.New("no instrument selected")
	// ErrReadOnly 品种处于激活状态，配置只读
	ErrReadOnly = errors.New("instrument is active and read-only")
	// ErrCredentialsMissing 交易所 API 密钥未配置，不允许激活
	ErrCredentialsMissing = errors.New("exchange API keys are not configured")
	// ErrUnknownField 非可编辑字段
	ErrUnknownField = errors.New("unknown field")
)

// Updater 外部品种存储的更新接口
type Updater interface {
	Update(ctx context.Context, symbol string, patch domain.InstrumentPatch) (domain.Instrument, error)
}

// SettingsGate 报告交易所凭证是否已配置
type SettingsGate interface {
	SettingsConfigured(ctx context.Context) (bool, error)
}

// CommitError wraps a failed model update for one field commit.
type CommitError struct {
	Field Field
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.Field, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Session 单个编辑器实例：持有当前品种的已提交值与草稿文本。
//
// mu 保护状态，持有时间很短，按键不会被网络往返阻塞；
// commitMu 串行化所有提交，保证下一次提交读取到的是上一次提交完成后的值。
type Session struct {
	store Updater
	gate  SettingsGate

	commitMu sync.Mutex

	mu    sync.Mutex
	inst  *domain.Instrument
	draft Draft
}

// NewSession creates an editor session. gate may be nil, in which case
// credentials are treated as configured.
func NewSession(store Updater, gate SettingsGate) *Session {
	return &Session{
		store: store,
		gate:  gate,
		draft: EmptyDraft(),
	}
}

// Select 切换当前品种。品种变化（或 nil）时重建草稿；
// 同一品种只刷新已提交值，保留用户正在输入的文本。
func (s *Session) Select(inst *domain.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst == nil {
		s.inst = nil
		s.draft = EmptyDraft()
		return
	}
	cp := *inst
	if s.inst == nil || s.inst.Symbol != cp.Symbol {
		s.draft = InitializeDraft(cp)
	}
	s.inst = &cp
}

// Instrument returns the committed value of the selected instrument.
func (s *Session) Instrument() (domain.Instrument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst == nil {
		return domain.Instrument{}, false
	}
	return *s.inst, true
}

// Text returns the draft text of f.
func (s *Session) Text(f Field) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Get(f)
}

// Draft returns a copy of the whole draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// OnFieldChange 每次按键调用：原样保存文本，不解析、不校验、不更新模型
func (s *Session) OnFieldChange(f Field, raw string) error {
	if !f.Valid() {
		return ErrUnknownField
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst == nil {
		return ErrNoInstrument
	}
	if s.inst.IsActive {
		return ErrReadOnly
	}
	s.draft.Set(f, raw)
	return nil
}

// snapshot 提交前取当前状态副本
func (s *Session) snapshot() (domain.Instrument, Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst == nil {
		return domain.Instrument{}, Draft{}, ErrNoInstrument
	}
	return *s.inst, s.draft.Clone(), nil
}

// apply 提交成功后写回已提交值与规范化文本；期间若已切换品种则丢弃。
// 配对字段的另一侧若在往返期间被用户改过（与 before 不同），保留用户输入。
func (s *Session) apply(updated domain.Instrument, committed Field, before Draft, texts map[Field]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst == nil || s.inst.Symbol != updated.Symbol {
		return
	}
	s.inst = &updated
	for f, t := range texts {
		if f != committed && s.draft.Get(f) != before.Get(f) {
			continue
		}
		s.draft.Set(f, t)
	}
}

// OnFieldCommit 失焦或回车时调用：解析草稿、取绝对值、配对字段经 ResolvePair 协调，
// 然后一次性调用 Updater。失败时草稿与已提交值均保持不变。
func (s *Session) OnFieldCommit(ctx context.Context, f Field) error {
	if !f.Valid() {
		return ErrUnknownField
	}
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	inst, draft, err := s.snapshot()
	if err != nil {
		return err
	}
	if inst.IsActive {
		return ErrReadOnly
	}

	patch, texts := buildCommit(f, inst, draft)
	updated, err := s.store.Update(ctx, inst.Symbol, patch)
	if err != nil {
		sessionLog.WithError(err).WithField("symbol", inst.Symbol).Warnf("提交字段 %s 失败", f)
		return &CommitError{Field: f, Err: err}
	}
	s.apply(updated, f, draft, texts)
	sessionLog.WithField("symbol", inst.Symbol).Debugf("字段 %s 已提交", f)
	return nil
}

// SetRefillEnabled 切换补仓开关
func (s *Session) SetRefillEnabled(ctx context.Context, enabled bool) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	inst, _, err := s.snapshot()
	if err != nil {
		return err
	}
	if inst.IsActive {
		return ErrReadOnly
	}
	refill := inst.Refill
	refill.Enabled = enabled
	updated, err := s.store.Update(ctx, inst.Symbol, domain.InstrumentPatch{Refill: &refill})
	if err != nil {
		return fmt.Errorf("toggle refill: %w", err)
	}
	s.apply(updated, "", Draft{}, nil)
	return nil
}

// SetActive 切换激活状态。停用总是直接执行；
// 激活前先检查凭证，再执行 ValidateBeforeActivation，任一失败都不发起更新。
func (s *Session) SetActive(ctx context.Context, active bool) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	inst, _, err := s.snapshot()
	if err != nil {
		return err
	}
	if active {
		if s.gate != nil {
			ok, err := s.gate.SettingsConfigured(ctx)
			if err != nil {
				return fmt.Errorf("check settings: %w", err)
			}
			if !ok {
				return ErrCredentialsMissing
			}
		}
		if res := ValidateBeforeActivation(inst); !res.Valid {
			return &ActivationError{Field: res.Field, Message: res.Message}
		}
	}
	updated, err := s.store.Update(ctx, inst.Symbol, domain.InstrumentPatch{IsActive: &active})
	if err != nil {
		return fmt.Errorf("set active=%v: %w", active, err)
	}
	s.apply(updated, "", Draft{}, nil)
	sessionLog.WithField("symbol", inst.Symbol).Infof("激活状态 -> %v", active)
	return nil
}

// buildCommit 计算一次提交的 patch 以及提交后草稿应显示的文本
func buildCommit(f Field, inst domain.Instrument, draft Draft) (domain.InstrumentPatch, map[Field]string) {
	switch f {
	case FieldTp1Volume, FieldTp2Volume:
		tp1 := roundTo(EnsurePositive(ParseLenient(draft.Get(FieldTp1Volume))), percentPlaces)
		tp2 := roundTo(EnsurePositive(ParseLenient(draft.Get(FieldTp2Volume))), percentPlaces)
		tp1, tp2 = ResolveTakeProfitVolumes(tp1, tp2, f == FieldTp1Volume)
		tp1, tp2 = roundTo(tp1, percentPlaces), roundTo(tp2, percentPlaces)

		levels := inst.TpLevels
		levels[0].VolumePercent = tp1
		levels[1].VolumePercent = tp2
		return domain.InstrumentPatch{TpLevels: &levels}, map[Field]string{
			FieldTp1Volume: FieldTp1Volume.format(tp1, inst),
			FieldTp2Volume: FieldTp2Volume.format(tp2, inst),
		}

	case FieldSlLongCount, FieldSlShortCount:
		long, short := ResolveStopLossCounts(
			EnsurePositive(ParseLenient(draft.Get(FieldSlLongCount))),
			EnsurePositive(ParseLenient(draft.Get(FieldSlShortCount))),
			f == FieldSlLongCount)

		slLong, slShort := inst.SlLong, inst.SlShort
		slLong.Count = long
		slShort.Count = short
		return domain.InstrumentPatch{SlLong: &slLong, SlShort: &slShort}, map[Field]string{
			FieldSlLongCount:  FieldSlLongCount.format(float64(long), inst),
			FieldSlShortCount: FieldSlShortCount.format(float64(short), inst),
		}
	}

	v := roundTo(EnsurePositive(ParseLenient(draft.Get(f))), f.decimals(inst))
	return singleFieldPatch(f, v, inst), map[Field]string{f: f.format(v, inst)}
}

// singleFieldPatch 非配对字段的 patch；嵌套结构整体替换，其余成员取已提交值
func singleFieldPatch(f Field, v float64, inst domain.Instrument) domain.InstrumentPatch {
	var p domain.InstrumentPatch
	switch f {
	case FieldEntryPrice:
		p.EntryPriceUsdt = &v
	case FieldEntryVolume:
		p.EntryVolumeUsdt = &v
	case FieldTpStep1, FieldTpStep2:
		levels := inst.TpLevels
		if f == FieldTpStep1 {
			levels[0].StepUsdt = v
		} else {
			levels[1].StepUsdt = v
		}
		p.TpLevels = &levels
	case FieldSlLongStep:
		sl := inst.SlLong
		sl.StepUsdt = v
		p.SlLong = &sl
	case FieldSlShortStep:
		sl := inst.SlShort
		sl.StepUsdt = v
		p.SlShort = &sl
	case FieldRefillLongPrice, FieldRefillLongVolume, FieldRefillShortPrice, FieldRefillShortVolume:
		refill := inst.Refill
		switch f {
		case FieldRefillLongPrice:
			refill.LongPriceUsdt = v
		case FieldRefillLongVolume:
			refill.LongVolumeUsdt = v
		case FieldRefillShortPrice:
			refill.ShortPriceUsdt = v
		case FieldRefillShortVolume:
			refill.ShortVolumeUsdt = v
		}
		p.Refill = &refill
	}
	return p
}
