package logbuffer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuffer_AppendAndSnapshot(t *testing.T) {
	buf := NewBuffer(10)

	buf.Append("line-1")
	buf.Append("line-2")
	buf.Append("line-3")

	snapshot := buf.Snapshot()
	assert.Equal(t, []string{"line-1", "line-2", "line-3"}, snapshot)
}

func TestBuffer_BoundedCapacity(t *testing.T) {
	buf := NewBuffer(5)

	// 超出容量后最旧的行被覆盖
	for i := 1; i <= 8; i++ {
		buf.Append(fmt.Sprintf("line-%d", i))
	}

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 5)
	assert.Equal(t, "line-4", snapshot[0])
	assert.Equal(t, "line-8", snapshot[4])
}

func TestBuffer_Tail(t *testing.T) {
	buf := NewBuffer(10)
	for i := 1; i <= 6; i++ {
		buf.Append(fmt.Sprintf("line-%d", i))
	}

	total, lines := buf.Tail(3)
	assert.Equal(t, 6, total)
	assert.Equal(t, []string{"line-4", "line-5", "line-6"}, lines)

	// 请求超过缓冲区行数时返回全部
	total, lines = buf.Tail(100)
	assert.Equal(t, 6, total)
	assert.Len(t, lines, 6)

	// 空缓冲区
	empty := NewBuffer(10)
	total, lines = empty.Tail(5)
	assert.Equal(t, 0, total)
	assert.Empty(t, lines)
}

func TestBuffer_String(t *testing.T) {
	buf := NewBuffer(10)
	assert.Equal(t, "", buf.String())

	buf.Append("line-1")
	buf.Append("line-2")
	assert.Equal(t, "line-1\nline-2\n", buf.String())
}

func TestCore_CapturesZapOutput(t *testing.T) {
	buf := NewBuffer(100)
	core := NewCore(buf, zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.InfoLevel)
	logger := zap.New(core)

	logger.Info("服务注册成功", zap.String("service_id", "svc-1"))
	logger.Debug("不应出现的Debug日志")
	logger.Warn("服务响应缓慢")

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Contains(t, snapshot[0], "服务注册成功")
	assert.Contains(t, snapshot[0], "svc-1")
	assert.Contains(t, snapshot[1], "服务响应缓慢")
}

func TestCore_WithFields(t *testing.T) {
	buf := NewBuffer(100)
	core := NewCore(buf, zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.InfoLevel)
	logger := zap.New(core).With(zap.String("component", "prober"))

	logger.Info("健康检查周期完成")

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 1)
	assert.True(t, strings.Contains(snapshot[0], "prober"))
}
