package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// 详情页正文配图
	detailImageSelector    = "img.userimg.img-a-r"
	detailClientTimeout    = 15 * time.Second
	detailMaxResponseBytes = 4 << 20 // 4MB
)

// DetailFetcher 打开新闻详情页，提取一张代表图
type DetailFetcher struct {
	UserAgent string
	Client    *http.Client
}

func NewDetailFetcher(userAgent string) *DetailFetcher {
	return &DetailFetcher{
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: detailClientTimeout},
	}
}

// FetchImage 返回第一个匹配图片的 src；没有匹配时返回空串且 err 为 nil
func (d *DetailFetcher) FetchImage(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("%w: new request: %v", ErrDetailFetch, err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", ErrDetailFetch, link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: get %s: status %d", ErrDetailFetch, link, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, detailMaxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrDetailFetch, link, err)
	}

	src, _ := doc.Find(detailImageSelector).First().Attr("src")
	return strings.TrimSpace(src), nil
}
