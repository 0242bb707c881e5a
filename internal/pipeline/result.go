package pipeline

import (
	"errors"
	"time"

	"github.com/LJTian/MALNewsBot/internal/collector"
	"github.com/LJTian/MALNewsBot/internal/storage"
	"github.com/LJTian/MALNewsBot/internal/telegram"
)

type State string

const (
	StateIdle            State = "idle"
	StateConnecting      State = "connecting"
	StateFetching        State = "fetching"
	StateComparingCursor State = "comparing_cursor"
	StateSkipped         State = "skipped"
	StateEnriching       State = "enriching"
	StateFormatting      State = "formatting"
	StateDelivering      State = "delivering"
	StateUpdatingCursor  State = "updating_cursor"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// 错误分类，用于日志与状态接口
const (
	KindStoreUnavailable  = "StoreUnavailable"
	KindSourceUnavailable = "SourceUnavailable"
	KindMalformedItem     = "MalformedItem"
	KindDeliveryFailed    = "DeliveryFailed"
	KindUnknown           = "Unknown"
)

// Result 一轮的结果。State 为终态（skipped / done / failed），失败时 FailedAt 记录出错的阶段
type Result struct {
	State      State     `json:"state"`
	FailedAt   State     `json:"failedAt,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Err        error     `json:"-"`
	Link       string    `json:"link,omitempty"`
	Title      string    `json:"title,omitempty"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Delivered  bool      `json:"delivered"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (r *Result) fail(err error) {
	r.FailedAt = r.State
	r.State = StateFailed
	r.Err = err
}

// Message 错误文本，成功时为空
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ErrorKind 将轮内错误归类
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, storage.ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, collector.ErrSourceUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, collector.ErrMalformedItem):
		return KindMalformedItem
	case errors.Is(err, telegram.ErrDeliveryFailed):
		return KindDeliveryFailed
	default:
		return KindUnknown
	}
}
