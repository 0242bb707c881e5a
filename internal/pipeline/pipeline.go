package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LJTian/MALNewsBot/internal/collector"
	"github.com/LJTian/MALNewsBot/internal/processor"
)

// ErrCycleInProgress 上一轮尚未结束，本次触发直接忽略
var ErrCycleInProgress = errors.New("cycle already in progress")

// Source 新闻源
type Source interface {
	Name() string
	FetchLatest(ctx context.Context) (collector.NewsItem, error)
}

// ImageFinder 详情页配图，失败只影响是否带图
type ImageFinder interface {
	FetchImage(ctx context.Context, link string) (string, error)
}

// CursorStore 记录最后一次成功推送的链接
type CursorStore interface {
	Connect(ctx context.Context) error
	GetCursor(ctx context.Context) (string, bool, error)
	SetCursor(ctx context.Context, link string) error
}

// Deliverer 推送到频道
type Deliverer interface {
	Deliver(ctx context.Context, n processor.Notification) error
}

type Deps struct {
	Source       Source
	Images       ImageFinder
	Store        CursorStore
	Deliverer    Deliverer
	ChannelLabel string
}

// Pipeline 每轮：连接存储 -> 取最新 -> 比较游标 -> 配图 -> 格式化 -> 推送 -> 更新游标
type Pipeline struct {
	source       Source
	images       ImageFinder
	store        CursorStore
	deliverer    Deliverer
	channelLabel string

	running atomic.Bool
	now     func() time.Time

	mu      sync.RWMutex
	last    Result
	hasLast bool
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		source:       deps.Source,
		images:       deps.Images,
		store:        deps.Store,
		deliverer:    deps.Deliverer,
		channelLabel: deps.ChannelLabel,
		now:          time.Now,
	}
}

// Run 执行一轮。轮内所有错误都体现在返回的 Result 中，不会 panic 到调用方；
// 与正在执行的轮次重叠时返回 ErrCycleInProgress，且不产生任何副作用。
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Result{State: StateIdle}, ErrCycleInProgress
	}
	defer p.running.Store(false)

	res := Result{State: StateIdle, StartedAt: p.now()}
	p.cycle(ctx, &res)
	res.FinishedAt = p.now()
	if res.Err != nil {
		res.Kind = ErrorKind(res.Err)
	}

	p.mu.Lock()
	p.last = res
	p.hasLast = true
	p.mu.Unlock()

	return res, res.Err
}

// Running 当前是否有轮次在执行
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Last 返回最近一轮已结束的结果
func (p *Pipeline) Last() (Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.hasLast
}

func (p *Pipeline) cycle(ctx context.Context, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline: panic in state %s: %v\n%s", res.State, r, debug.Stack())
			res.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	res.State = StateConnecting
	if err := p.store.Connect(ctx); err != nil {
		res.fail(fmt.Errorf("connect store: %w", err))
		return
	}

	res.State = StateFetching
	item, err := p.source.FetchLatest(ctx)
	if err != nil {
		res.fail(fmt.Errorf("fetch latest from %s: %w", p.source.Name(), err))
		return
	}
	res.Link = item.URL
	res.Title = item.Title

	res.State = StateComparingCursor
	cursor, ok, err := p.store.GetCursor(ctx)
	if err != nil {
		res.fail(fmt.Errorf("read cursor: %w", err))
		return
	}
	if ok && cursor == item.URL {
		res.State = StateSkipped
		return
	}

	res.State = StateEnriching
	imageURL, err := p.images.FetchImage(ctx, item.URL)
	if err != nil {
		log.Printf("pipeline: detail fetch failed for %s, sending without image: %v", item.URL, err)
		imageURL = ""
	}
	res.ImageURL = imageURL

	res.State = StateFormatting
	n := processor.Format(item, imageURL, p.channelLabel)

	res.State = StateDelivering
	if err := p.deliverer.Deliver(ctx, n); err != nil {
		res.fail(fmt.Errorf("deliver %s: %w", item.URL, err))
		return
	}
	res.Delivered = true

	res.State = StateUpdatingCursor
	if err := p.store.SetCursor(ctx, item.URL); err != nil {
		// 已发送但游标未写入，下一轮可能重复推送
		res.fail(fmt.Errorf("update cursor after delivering %s: %w", item.URL, err))
		return
	}

	res.State = StateDone
}
