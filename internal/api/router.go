package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/LJTian/MALNewsBot/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// CycleRunner 手动触发与查询最近一轮
type CycleRunner interface {
	Run(ctx context.Context) (pipeline.Result, error)
	Last() (pipeline.Result, bool)
	Running() bool
}

// CursorReader 只读游标
type CursorReader interface {
	Connect(ctx context.Context) error
	GetCursor(ctx context.Context) (string, bool, error)
}

type Server struct {
	runner CycleRunner
	cursor CursorReader
}

func NewServer(runner CycleRunner, cursor CursorReader) *Server {
	return &Server{runner: runner, cursor: cursor}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/status", s.status)
		v1.POST("/cycles", s.triggerCycle)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type cycleView struct {
	pipeline.Result
	Error string `json:"error,omitempty"`
}

func viewOf(res pipeline.Result) cycleView {
	return cycleView{Result: res, Error: res.Message()}
}

func (s *Server) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.cursor.Connect(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "store_unavailable",
			"message": err.Error(),
		})
		return
	}
	cursor, ok, err := s.cursor.GetCursor(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "store_unavailable",
			"message": err.Error(),
		})
		return
	}

	data := gin.H{
		"cursor":    cursor,
		"hasCursor": ok,
		"running":   s.runner.Running(),
	}
	if last, ok := s.runner.Last(); ok {
		data["lastCycle"] = viewOf(last)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func (s *Server) triggerCycle(c *gin.Context) {
	// 客户端断开不应中断一轮推送，否则可能已发送却未写入游标
	res, err := s.runner.Run(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, pipeline.ErrCycleInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "cycle_in_progress",
			"message": err.Error(),
		})
		return
	}

	// 轮内失败也返回 200，结果里带上失败阶段与分类
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    viewOf(res),
	})
}

// BasicAuth 为状态接口增加一个简单的 Basic Auth 访问密码。
// /health 不做认证，便于健康检查。
func BasicAuth(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
