package processor

import (
	"fmt"
	"strings"

	"github.com/LJTian/MALNewsBot/internal/collector"
)

const (
	ellipsis      = "..."
	readMoreLabel = "Read more"
)

// Button 消息下方唯一的跳转按钮
type Button struct {
	Text string
	URL  string
}

// Notification 推送前的统一结构，ImageURL 为空时走纯文本发送
type Notification struct {
	Title    string
	Caption  string
	Link     string
	ImageURL string
	Button   Button
}

// FormatText 正文以 "..." 结尾时，把这三个点替换成指向原文的链接
func FormatText(text, link string) string {
	if !strings.HasSuffix(text, ellipsis) {
		return text
	}
	return strings.TrimSuffix(text, ellipsis) + fmt.Sprintf(`<a href="%s">%s</a>`, link, ellipsis)
}

// Format 生成 HTML caption 与按钮；字段原样插入，不做转义
func Format(item collector.NewsItem, imageURL, channelLabel string) Notification {
	caption := fmt.Sprintf("<b>%s</b>\n\n<i>%s</i>\n\n<i>Join :</i> <b>%s</b>",
		item.Title,
		FormatText(item.Text, item.URL),
		channelLabel,
	)

	return Notification{
		Title:    item.Title,
		Caption:  caption,
		Link:     item.URL,
		ImageURL: imageURL,
		Button:   Button{Text: readMoreLabel, URL: item.URL},
	}
}
