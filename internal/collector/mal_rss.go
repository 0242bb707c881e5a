package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const malRSSClientTimeout = 15 * time.Second

// MALRSSFetcher 通过 MyAnimeList 新闻 RSS 获取最新一条，作为列表页抓取的备选
type MALRSSFetcher struct {
	URL       string
	UserAgent string

	parser *gofeed.Parser
}

func NewMALRSSFetcher(url, userAgent string) *MALRSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	p.Client = &http.Client{Timeout: malRSSClientTimeout}
	return &MALRSSFetcher{URL: url, UserAgent: userAgent, parser: p}
}

func (m *MALRSSFetcher) Name() string {
	return "mal_rss"
}

func (m *MALRSSFetcher) FetchLatest(ctx context.Context) (NewsItem, error) {
	if m.parser == nil {
		m.parser = gofeed.NewParser()
	}

	feed, err := m.parser.ParseURLWithContext(m.URL, ctx)
	if err != nil {
		return NewsItem{}, fmt.Errorf("%w: parse feed %s: %v", ErrSourceUnavailable, m.URL, err)
	}
	if len(feed.Items) == 0 {
		return NewsItem{}, fmt.Errorf("%w: feed %s has no items", ErrSourceUnavailable, m.URL)
	}

	latest := feed.Items[0]
	desc := latest.Description
	if strings.TrimSpace(desc) == "" {
		desc = latest.Content
	}

	item := NewsItem{
		Title: strings.TrimSpace(latest.Title),
		Text:  htmlToText(desc),
		URL:   strings.TrimSpace(latest.Link),
	}
	if err := item.validate(); err != nil {
		return NewsItem{}, err
	}

	log.Printf("%s: latest %q (%s)", m.Name(), item.Title, item.URL)
	return item, nil
}

// htmlToText RSS 描述里可能夹带标签，只保留文字
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
