package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

// ErrConfigMissing 必填环境变量缺失，进程无法启动
var ErrConfigMissing = errors.New("config missing")

type Config struct {
	// Telegram
	Token          string
	Chat           string
	TelegramAPIURL string

	RedisURI string

	CronSpec string

	// 新闻源：html（列表页抓取）或 rss
	NewsSource string
	NewsURL    string
	NewsRSSURL string
	UserAgent  string

	// 状态接口，AppPort 为空时不启动
	AppPort       string
	BasicAuthUser string
	BasicAuthPass string
}

func Load() (*Config, error) {
	cfg := &Config{
		Token:          strings.TrimSpace(os.Getenv("TOKEN")),
		Chat:           strings.TrimSpace(os.Getenv("CHAT")),
		TelegramAPIURL: getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		RedisURI:       strings.TrimSpace(os.Getenv("REDIS_URI")),
		CronSpec:       getEnv("CRON_SPEC", "*/2 * * * *"),
		NewsSource:     strings.ToLower(getEnv("NEWS_SOURCE", "html")),
		NewsURL:        getEnv("NEWS_URL", "https://myanimelist.net/news"),
		NewsRSSURL:     getEnv("NEWS_RSS_URL", "https://myanimelist.net/rss/news.xml"),
		UserAgent:      getEnv("USER_AGENT", "MALNewsBot/1.0"),
		AppPort:        getEnvAllowEmpty("APP_PORT", "9000"),
		BasicAuthUser:  os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:  os.Getenv("APP_BASIC_PASS"),
	}

	var missing []string
	for _, kv := range []struct{ key, val string }{
		{"TOKEN", cfg.Token},
		{"CHAT", cfg.Chat},
		{"REDIS_URI", cfg.RedisURI},
	} {
		if kv.val == "" {
			missing = append(missing, kv.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfigMissing, strings.Join(missing, ", "))
	}

	switch cfg.NewsSource {
	case "html", "rss":
	default:
		return nil, fmt.Errorf("config: unknown NEWS_SOURCE %q (want html or rss)", cfg.NewsSource)
	}

	log.Printf("config loaded: chat=%s source=%s cron=%s port=%s", cfg.Chat, cfg.NewsSource, cfg.CronSpec, cfg.AppPort)
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvAllowEmpty 显式设置为空字符串时返回空，用于关闭可选功能
func getEnvAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}
