package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HeaderRunID carries the per-request run id.
const HeaderRunID = "X-Run-ID"

// requestLogger logs one line per request with the run id.
func requestLogger(l *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []zap.Field{
			zap.String("run_id", runID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes_in", len(c.Body())),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
			l.Warn("请求处理失败", fields...)
			return err
		}
		l.Info("请求完成", fields...)
		return nil
	}
}

func runID(c *fiber.Ctx) string {
	return c.GetRespHeader(HeaderRunID)
}
