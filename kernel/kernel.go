package kernel

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ByLCY/gcodesolid/outline"
)

// ErrKernelFailure wraps every error returned across the kernel boundary.
var ErrKernelFailure = errors.New("几何内核失败")

// Solid 是几何内核返回的不透明实体句柄。
type Solid interface {
	Empty() bool
}

// Kernel 将二维轮廓拉伸为实体，支持实体并集，并将实体导出为交换格式文件。
type Kernel interface {
	Build(o outline.Outline) (Solid, error)
	Union(a, b Solid) (Solid, error)
	Export(s Solid, w io.Writer) error
	// Ext is the file extension of exported files, without the dot.
	Ext() string
}

// ConcurrentSafe is implemented by kernels that document thread safety.
// Guards skip locking for them.
type ConcurrentSafe interface {
	ConcurrentSafe() bool
}

// Guard serializes access to a kernel. Acquire hands out one Session per
// layer; the next Acquire blocks until that session is released.
type Guard struct {
	kernel Kernel
	mu     sync.Mutex
	locked bool
}

// NewGuard wraps k.
func NewGuard(k Kernel) *Guard {
	cs, ok := k.(ConcurrentSafe)
	return &Guard{kernel: k, locked: !(ok && cs.ConcurrentSafe())}
}

// Acquire opens a session for the given layer.
func (g *Guard) Acquire(layer int) *Session {
	if g.locked {
		g.mu.Lock()
	}
	return &Session{guard: g, layer: layer}
}

// Ext returns the export extension of the wrapped kernel.
func (g *Guard) Ext() string { return g.kernel.Ext() }

// Session accumulates the union of one layer's solids. It is not safe for
// concurrent use and must be released exactly once.
type Session struct {
	guard    *Guard
	layer    int
	solid    Solid
	count    int
	released bool
}

// Add builds the outline of segment seg and unions it into the layer.
func (s *Session) Add(seg int, o outline.Outline) error {
	if s.released {
		return fmt.Errorf("%w: 第 %d 层: 会话已释放", ErrKernelFailure, s.layer)
	}
	solid, err := s.guard.kernel.Build(o)
	if err != nil {
		return fmt.Errorf("%w: 第 %d 层第 %d 段构建失败: %w", ErrKernelFailure, s.layer, seg, err)
	}
	if s.solid == nil {
		s.solid = solid
		s.count++
		return nil
	}
	merged, err := s.guard.kernel.Union(s.solid, solid)
	if err != nil {
		return fmt.Errorf("%w: 第 %d 层第 %d 段合并失败: %w", ErrKernelFailure, s.layer, seg, err)
	}
	s.solid = merged
	s.count++
	return nil
}

// Count returns the number of solids added so far.
func (s *Session) Count() int { return s.count }

// Empty reports whether nothing has been added, or the union is empty.
func (s *Session) Empty() bool { return s.solid == nil || s.solid.Empty() }

// Export writes the layer's solid to w.
func (s *Session) Export(w io.Writer) error {
	if s.released {
		return fmt.Errorf("%w: 第 %d 层: 会话已释放", ErrKernelFailure, s.layer)
	}
	if s.Empty() {
		return fmt.Errorf("%w: 第 %d 层: 没有可导出的实体", ErrKernelFailure, s.layer)
	}
	if err := s.guard.kernel.Export(s.solid, w); err != nil {
		return fmt.Errorf("%w: 第 %d 层导出失败: %w", ErrKernelFailure, s.layer, err)
	}
	return nil
}

// Release drops the accumulated solid and unlocks the kernel. Calling it
// more than once is a no-op.
func (s *Session) Release() {
	if s.released {
		return
	}
	s.released = true
	s.solid = nil
	if s.guard.locked {
		s.guard.mu.Unlock()
	}
}
