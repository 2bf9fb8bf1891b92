package notify

import (
	"sync"
	"time"

	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"go.uber.org/zap"
)

// Notifier delivers short user-visible messages (the storefront's toasts).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

const defaultCapacity = 50

// Feed keeps the most recent notices in memory until a UI drains them.
type Feed struct {
	mu       sync.Mutex
	notices  []types.Notice
	capacity int
	now      func() time.Time
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Feed{capacity: capacity, now: time.Now}
}

func (f *Feed) Success(msg string) {
	f.push(types.NoticeSuccess, msg)
}

func (f *Feed) Error(msg string) {
	f.push(types.NoticeError, msg)
}

func (f *Feed) push(level types.NoticeLevel, msg string) {
	utils.Zlog.Debug("Notice", zap.String("level", string(level)), zap.String("message", msg))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, types.Notice{Level: level, Message: msg, At: f.now().UTC()})
	if over := len(f.notices) - f.capacity; over > 0 {
		f.notices = append([]types.Notice(nil), f.notices[over:]...)
	}
}

// Drain returns pending notices oldest first and empties the feed.
func (f *Feed) Drain() []types.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.notices
	f.notices = nil
	if out == nil {
		out = []types.Notice{}
	}
	return out
}

// Pending reports how many notices are waiting.
func (f *Feed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

// Discard drops every notice; useful where no UI is attached.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
