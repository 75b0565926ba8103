package alert

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"market-stats-go/infrastructure/logger"
)

// LogChannel 把告警写入结构化日志。
type LogChannel struct {
	log  *logger.Logger
	name string
}

func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	return &LogChannel{log: log, name: name}
}

func (c *LogChannel) Send(a Alert) error {
	if c.log == nil {
		return fmt.Errorf("logger not set")
	}
	level := zapcore.InfoLevel
	switch a.Level {
	case LevelWarning:
		level = zapcore.WarnLevel
	case LevelCritical:
		level = zapcore.ErrorLevel
	}
	fields := []zap.Field{
		zap.String("alert_level", string(a.Level)),
		zap.String("symbol", a.Symbol),
		zap.Time("alert_ts", a.Timestamp),
	}
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	if ce := c.log.Check(level, "alert: "+a.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// MockChannel 记录告警（用于测试验证）
type MockChannel struct {
	name      string
	mu        sync.Mutex
	alerts    []Alert
	shouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

// Alerts 返回收到的告警副本
func (c *MockChannel) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

func (c *MockChannel) SetShouldError(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldErr = v
}
