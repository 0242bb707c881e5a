package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable 上游不可达、返回非 2xx 或列表为空
	ErrSourceUnavailable = errors.New("news source unavailable")
	// ErrMalformedItem 最新一条缺少链接或正文
	ErrMalformedItem = errors.New("malformed news item")
	// ErrDetailFetch 详情页抓取失败，调用方应降级为“无图”
	ErrDetailFetch = errors.New("detail page fetch failed")
)

// NewsItem 单轮采集得到的最新新闻，URL 是唯一标识
type NewsItem struct {
	Title string
	Text  string
	URL   string
}

// Fetcher 抽象新闻源：只关心当前最新的一条
type Fetcher interface {
	Name() string
	FetchLatest(ctx context.Context) (NewsItem, error)
}

// validate 链接和正文在后续环节都是必需的
func (it NewsItem) validate() error {
	var missing []string
	if strings.TrimSpace(it.URL) == "" {
		missing = append(missing, "link")
	}
	if strings.TrimSpace(it.Text) == "" {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s (title=%q)", ErrMalformedItem, strings.Join(missing, ", "), it.Title)
	}
	return nil
}
