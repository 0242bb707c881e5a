package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/MALNewsBot/internal/processor"
)

const (
	methodSendPhoto   = "sendPhoto"
	methodSendMessage = "sendMessage"

	parseModeHTML       = "HTML"
	clientTimeout       = 15 * time.Second
	maxResponseBodySize = 64 * 1024
)

// ErrDeliveryFailed Bot API 未确认发送成功
var ErrDeliveryFailed = errors.New("telegram delivery failed")

// DeliveryError 保留 HTTP 状态码和响应体，便于排查
type DeliveryError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("telegram %s: status %d: %s", e.Method, e.StatusCode, e.Body)
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type sendPhotoRequest struct {
	ChatID      string      `json:"chat_id"`
	ParseMode   string      `json:"parse_mode"`
	ReplyMarkup replyMarkup `json:"reply_markup"`
	Photo       string      `json:"photo"`
	Caption     string      `json:"caption"`
}

type sendMessageRequest struct {
	ChatID                string      `json:"chat_id"`
	ParseMode             string      `json:"parse_mode"`
	ReplyMarkup           replyMarkup `json:"reply_markup"`
	Text                  string      `json:"text"`
	DisableWebPagePreview bool        `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Client 通过 Bot API 向单个频道推送
type Client struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

func NewClient(baseURL, token, chatID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: clientTimeout},
	}
}

// Deliver 有图走 sendPhoto，否则走 sendMessage，每次只调用其中一个
func (c *Client) Deliver(ctx context.Context, n processor.Notification) error {
	markup := replyMarkup{
		InlineKeyboard: [][]inlineButton{{{Text: n.Button.Text, URL: n.Button.URL}}},
	}

	if n.ImageURL != "" {
		return c.call(ctx, methodSendPhoto, sendPhotoRequest{
			ChatID:      c.chatID,
			ParseMode:   parseModeHTML,
			ReplyMarkup: markup,
			Photo:       n.ImageURL,
			Caption:     n.Caption,
		})
	}

	return c.call(ctx, methodSendMessage, sendMessageRequest{
		ChatID:                c.chatID,
		ParseMode:             parseModeHTML,
		ReplyMarkup:           markup,
		Text:                  n.Caption,
		DisableWebPagePreview: true,
	})
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: new request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error 会带上包含 token 的地址，这里不透传
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, method, redact(err.Error(), c.token))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{Method: method, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out apiResponse
	if err := json.Unmarshal(respBody, &out); err == nil && !out.OK {
		return &DeliveryError{Method: method, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<token>")
}
