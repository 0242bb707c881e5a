package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LJTian/MALNewsBot/internal/processor"
)

type capturedCall struct {
	Path string
	Body map[string]any
}

func newBotServer(t *testing.T, status int, reply string) (*httptest.Server, *[]capturedCall) {
	t.Helper()
	var calls []capturedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("request body is not json: %v", err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		calls = append(calls, capturedCall{Path: r.URL.Path, Body: body})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func sampleNotification(image string) processor.Notification {
	return processor.Notification{
		Title:    "Season Finale",
		Caption:  "<b>Season Finale</b>",
		Link:     "https://mal.news/101",
		ImageURL: image,
		Button:   processor.Button{Text: "Read more", URL: "https://mal.news/101"},
	}
}

func checkMarkup(t *testing.T, body map[string]any) {
	t.Helper()
	markup, ok := body["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("reply_markup missing: %v", body)
	}
	rows, ok := markup["inline_keyboard"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("inline_keyboard should have one row: %v", markup)
	}
	row := rows[0].([]any)
	if len(row) != 1 {
		t.Fatalf("inline_keyboard row should have one button: %v", row)
	}
	btn := row[0].(map[string]any)
	if btn["text"] != "Read more" || btn["url"] != "https://mal.news/101" {
		t.Fatalf("unexpected button: %v", btn)
	}
}

func TestDeliverWithImageUsesSendPhoto(t *testing.T) {
	srv, calls := newBotServer(t, http.StatusOK, `{"ok":true,"result":{}}`)
	c := NewClient(srv.URL+"/", "123:abc", "@mal_news")

	if err := c.Deliver(context.Background(), sampleNotification("https://img/101.jpg")); err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected exactly 1 call, got %d", len(*calls))
	}
	call := (*calls)[0]
	if call.Path != "/bot123:abc/sendPhoto" {
		t.Fatalf("Path = %q", call.Path)
	}
	b := call.Body
	if b["chat_id"] != "@mal_news" || b["parse_mode"] != "HTML" {
		t.Fatalf("unexpected base payload: %v", b)
	}
	if b["photo"] != "https://img/101.jpg" || b["caption"] != "<b>Season Finale</b>" {
		t.Fatalf("unexpected photo payload: %v", b)
	}
	if _, ok := b["text"]; ok {
		t.Fatalf("sendPhoto payload should not carry text: %v", b)
	}
	checkMarkup(t, b)
}

func TestDeliverWithoutImageUsesSendMessage(t *testing.T) {
	srv, calls := newBotServer(t, http.StatusOK, `{"ok":true,"result":{}}`)
	c := NewClient(srv.URL, "123:abc", "@mal_news")

	if err := c.Deliver(context.Background(), sampleNotification("")); err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected exactly 1 call, got %d", len(*calls))
	}
	call := (*calls)[0]
	if call.Path != "/bot123:abc/sendMessage" {
		t.Fatalf("Path = %q", call.Path)
	}
	b := call.Body
	if b["text"] != "<b>Season Finale</b>" {
		t.Fatalf("text = %v", b["text"])
	}
	if b["disable_web_page_preview"] != true {
		t.Fatalf("disable_web_page_preview = %v, want true", b["disable_web_page_preview"])
	}
	if _, ok := b["photo"]; ok {
		t.Fatalf("sendMessage payload should not carry photo: %v", b)
	}
	checkMarkup(t, b)
}

func TestDeliverNonSuccessStatus(t *testing.T) {
	reply := `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	srv, _ := newBotServer(t, http.StatusBadRequest, reply)
	c := NewClient(srv.URL, "123:abc", "@mal_news")

	err := c.Deliver(context.Background(), sampleNotification(""))
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Deliver error = %v, want ErrDeliveryFailed", err)
	}
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Deliver error should be *DeliveryError: %T", err)
	}
	if de.StatusCode != http.StatusBadRequest || de.Body != reply || de.Method != "sendMessage" {
		t.Fatalf("unexpected DeliveryError: %+v", de)
	}
}

func TestDeliverOKFalseIsFailure(t *testing.T) {
	srv, _ := newBotServer(t, http.StatusOK, `{"ok":false,"description":"flood"}`)
	c := NewClient(srv.URL, "123:abc", "@mal_news")

	if err := c.Deliver(context.Background(), sampleNotification("https://img/1.jpg")); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Deliver error = %v, want ErrDeliveryFailed", err)
	}
}

func TestDeliverTransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, "123:secret", "@mal_news")
	err := c.Deliver(context.Background(), sampleNotification(""))
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Deliver error = %v, want ErrDeliveryFailed", err)
	}
	if strings.Contains(err.Error(), "123:secret") {
		t.Fatalf("error leaks bot token: %v", err)
	}
}
