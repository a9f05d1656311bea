package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/resv_go_server/config"
)

func newTestSchedule(t *testing.T) *Schedule {
	t.Helper()

	s, err := New(&config.SlotsConfig{
		Timezone: "UTC",
		Times:    []string{"20:30", "21:00", "21:30", "22:00", "22:30", "23:00"},
		Cutoff:   "23:00",
	})
	require.NoError(t, err)
	return s
}

func TestNew_BadConfig(t *testing.T) {
	_, err := New(&config.SlotsConfig{Timezone: "Mars/Olympus", Cutoff: "23:00"})
	assert.Error(t, err)

	_, err = New(&config.SlotsConfig{Timezone: "UTC", Times: []string{"2530"}, Cutoff: "23:00"})
	assert.Error(t, err)

	_, err = New(&config.SlotsConfig{Timezone: "UTC", Times: []string{"25:30"}, Cutoff: "23:00"})
	assert.Error(t, err)
}

func TestSchedule_TargetDate(t *testing.T) {
	s := newTestSchedule(t)

	// 截止点之前：今天
	now := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), s.TargetDate(now))

	// 23:00 起算过截止点：明天
	now = time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), s.TargetDate(now))

	now = time.Date(2025, 3, 10, 23, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), s.TargetDate(now))
}

func TestSchedule_DateFor(t *testing.T) {
	s := newTestSchedule(t)

	// 2025-03-10 是周一
	monday := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// 今天算命中
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), s.DateFor(monday, time.Monday))
	// 后面的星期
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), s.DateFor(monday, time.Thursday))
	// 已过的星期绕到下周
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), s.DateFor(monday, time.Sunday))

	// 今天命中但已过截止点：顺延一周
	lateMonday := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), s.DateFor(lateMonday, time.Monday))
	// 其他星期不受截止点影响
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), s.DateFor(lateMonday, time.Tuesday))
}

func TestSchedule_SlotTimes(t *testing.T) {
	s := newTestSchedule(t)

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	slots := s.SlotTimes(date)
	require.Len(t, slots, 6)
	assert.Equal(t, time.Date(2025, 3, 10, 20, 30, 0, 0, time.UTC), slots[0])
	assert.Equal(t, time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC), slots[5])
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, 30*time.Minute, slots[i].Sub(slots[i-1]))
	}
}

func TestSchedule_DayBounds(t *testing.T) {
	s := newTestSchedule(t)

	start, end := s.DayBounds(time.Date(2025, 3, 10, 21, 17, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), end)
}

func TestReminderWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	start, end := ReminderWindow(now, 30*time.Minute, 90*time.Second)

	assert.Equal(t, now.Add(30*time.Minute-90*time.Second), start)
	assert.Equal(t, now.Add(30*time.Minute+90*time.Second), end)
}
