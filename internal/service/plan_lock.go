package service

import "sync"

const planLockStripes = 64

// planLocks 按计划 ID 分段加锁，串行化同一计划的状态迁移
type planLocks struct {
	stripes [planLockStripes]sync.Mutex
}

func (l *planLocks) lock(planID uint) func() {
	m := &l.stripes[planID%planLockStripes]
	m.Lock()
	return m.Unlock
}
