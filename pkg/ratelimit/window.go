package ratelimit

import (
	"sync"
	"time"
)

// Limiter 判断是否还有调用预算；Allow 返回 true 时即记为一次调用
type Limiter interface {
	Allow() bool
}

// SlidingWindow 滚动窗口计数：窗口 W 内最多 N 次调用。
// maxCalls <= 0 表示不限流。
type SlidingWindow struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time
	now      func() time.Time
}

func NewSlidingWindow(maxCalls int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
	}
}

// WithClock 替换时间源，测试用
func (l *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

func (l *SlidingWindow) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxCalls <= 0 {
		return true
	}

	now := l.now()
	l.pruneLocked(now)
	if len(l.calls) >= l.maxCalls {
		return false
	}
	l.calls = append(l.calls, now)
	return true
}

// Remaining 当前窗口内剩余的调用次数
func (l *SlidingWindow) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxCalls <= 0 {
		return -1
	}
	l.pruneLocked(l.now())
	return l.maxCalls - len(l.calls)
}

// SetLimits 热更新限额，已记录的调用保留
func (l *SlidingWindow) SetLimits(maxCalls int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxCalls = maxCalls
	l.window = window
}

func (l *SlidingWindow) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *SlidingWindow) pruneLocked(now time.Time) {
	if len(l.calls) == 0 {
		return
	}
	threshold := now.Add(-l.window)
	kept := l.calls[:0]
	for _, ts := range l.calls {
		if ts.After(threshold) {
			kept = append(kept, ts)
		}
	}
	l.calls = kept
}
