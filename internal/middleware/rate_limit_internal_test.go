package middleware

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiter_SweepsIdleEntriesOnInterval(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1, t0)

	for i := 0; i < 50; i++ {
		l.get(fmt.Sprintf("10.0.0.%d", i), t0)
	}
	assert.Len(t, l.limiters, 50)

	// 間隔内は掃除しない
	l.get("10.0.1.1", t0.Add(30*time.Second))
	assert.Len(t, l.limiters, 51)
	assert.Equal(t, t0, l.lastSweep)

	// アイドル超過分だけ消える。件数に関係なく間隔で走る
	now := t0.Add(limiterIdleTTL + time.Minute)
	l.get("10.0.2.1", now)
	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "10.0.2.1")
	assert.Equal(t, now, l.lastSweep)

	// 直後の呼び出しでは走らない
	l.get("10.0.0.1", now.Add(time.Second))
	l.get("10.0.2.2", now.Add(2*time.Second))
	assert.Len(t, l.limiters, 3)
}
