package logbuffer

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// Buffer 是有界的日志行环形缓冲区。
// 容量满后新行覆盖最旧的行，进程生命周期内内存占用恒定。
type Buffer struct {
	mutex    sync.Mutex
	lines    []string
	next     int
	size     int
	capacity int
}

// NewBuffer 创建指定容量的环形缓冲区，容量非正时使用默认值2000
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 2000
	}
	return &Buffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Append 追加一行日志
func (b *Buffer) Append(line string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.lines[b.next] = line
	b.next = (b.next + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Snapshot 返回缓冲区内全部日志行，从最旧到最新
func (b *Buffer) Snapshot() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	result := make([]string, 0, b.size)
	start := b.next - b.size
	if start < 0 {
		start += b.capacity
	}
	for i := 0; i < b.size; i++ {
		result = append(result, b.lines[(start+i)%b.capacity])
	}
	return result
}

// Tail 返回最近n行日志，以及缓冲区内的总行数
func (b *Buffer) Tail(n int) (int, []string) {
	all := b.Snapshot()
	if n < 0 {
		n = 0
	}
	if n >= len(all) {
		return len(all), all
	}
	return len(all), all[len(all)-n:]
}

// String 将缓冲区内容拼接为完整文本
func (b *Buffer) String() string {
	all := b.Snapshot()
	if len(all) == 0 {
		return ""
	}
	return strings.Join(all, "\n") + "\n"
}

// core 把zap日志行写入缓冲区
type core struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	buf *Buffer
}

// NewCore 创建写入缓冲区的zapcore.Core，
// 与控制台core组成Tee后即可捕获全部输出日志。
func NewCore(buf *Buffer, enc zapcore.Encoder, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{
		LevelEnabler: enab,
		enc:          enc,
		buf:          buf,
	}
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	clone := &core{
		LevelEnabler: c.LevelEnabler,
		enc:          c.enc.Clone(),
		buf:          c.buf,
	}
	for _, field := range fields {
		field.AddTo(clone.enc)
	}
	return clone
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	encoded, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := strings.TrimRight(encoded.String(), "\n")
	encoded.Free()
	c.buf.Append(line)
	return nil
}

func (c *core) Sync() error {
	return nil
}
