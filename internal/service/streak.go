package service

import (
	"skillplan_backend/internal/model"
	"time"
)

// UpdateStreak 按用户时区的日历日差更新连续天数：
// 同一天不变，相差一天 +1，间隔更久重置为 1。
func UpdateStreak(user *model.User, now time.Time) {
	if user.LastCompletedDate == nil {
		user.Streak = 1
	} else {
		switch diff := calendarDaysBetween(*user.LastCompletedDate, now, user.Location()); {
		case diff <= 0:
			// 同一天或时钟回拨，保持不变
		case diff == 1:
			user.Streak++
		default:
			user.Streak = 1
		}
	}

	completedAt := now
	user.LastCompletedDate = &completedAt
	if user.Streak > user.LongestStreak {
		user.LongestStreak = user.Streak
	}
}

// calendarDaysBetween 两个时间点在 loc 下相隔的日历天数
func calendarDaysBetween(from, to time.Time, loc *time.Location) int {
	a := from.In(loc)
	b := to.In(loc)
	dayA := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	dayB := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(dayB.Sub(dayA).Hours() / 24)
}

func sameCalendarDay(a, b time.Time, loc *time.Location) bool {
	return calendarDaysBetween(a, b, loc) == 0
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
