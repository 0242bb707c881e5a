package collector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const malNewsRequestTimeout = 15 * time.Second

// MALNewsFetcher 抓取 MyAnimeList 新闻列表页，只取最上面一条
type MALNewsFetcher struct {
	URL       string
	UserAgent string
}

func (m *MALNewsFetcher) Name() string {
	return "mal_news"
}

func (m *MALNewsFetcher) FetchLatest(ctx context.Context) (NewsItem, error) {
	// colly 不接受 ctx，只能在请求前检查一次，之后由请求超时兜底
	if err := ctx.Err(); err != nil {
		return NewsItem{}, err
	}

	c := colly.NewCollector(colly.UserAgent(m.UserAgent))
	c.SetRequestTimeout(malNewsRequestTimeout)

	var (
		found bool
		item  NewsItem
	)

	// 页面结构可能调整，此处基于当前的 DOM 结构解析
	c.OnHTML("div.news-unit", func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true

		titleSel := e.DOM.Find("p.title a").First()
		href, _ := titleSel.Attr("href")
		if strings.TrimSpace(href) == "" {
			href = e.ChildAttr("a.image-link", "href")
		}
		href = strings.TrimSpace(href)
		if href != "" {
			href = e.Request.AbsoluteURL(href)
		}

		item = NewsItem{
			Title: strings.TrimSpace(titleSel.Text()),
			Text:  strings.TrimSpace(e.ChildText("div.text")),
			URL:   href,
		}
	})

	if err := c.Visit(m.URL); err != nil {
		return NewsItem{}, fmt.Errorf("%w: visit %s: %v", ErrSourceUnavailable, m.URL, err)
	}
	c.Wait()

	if !found {
		return NewsItem{}, fmt.Errorf("%w: no news items on %s", ErrSourceUnavailable, m.URL)
	}
	if err := item.validate(); err != nil {
		return NewsItem{}, err
	}

	log.Printf("%s: latest %q (%s)", m.Name(), item.Title, item.URL)
	return item, nil
}
