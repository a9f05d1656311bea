package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qs3c/resv_go_server/config"
)

type timeOfDay struct {
	hour   int
	minute int
}

// Schedule 固定晚间时段表和截止规则，全部为纯日期运算
type Schedule struct {
	loc    *time.Location
	slots  []timeOfDay
	cutoff timeOfDay
}

func New(cfg *config.SlotsConfig) (*Schedule, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	s := &Schedule{loc: loc}
	for _, raw := range cfg.Times {
		tod, err := parseTimeOfDay(raw)
		if err != nil {
			return nil, err
		}
		s.slots = append(s.slots, tod)
	}
	s.cutoff, err = parseTimeOfDay(cfg.Cutoff)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func parseTimeOfDay(raw string) (timeOfDay, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return timeOfDay{}, fmt.Errorf("bad time of day %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return timeOfDay{}, fmt.Errorf("bad time of day %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return timeOfDay{}, fmt.Errorf("bad time of day %q", raw)
	}
	return timeOfDay{hour: hour, minute: minute}, nil
}

func (s *Schedule) Location() *time.Location {
	return s.loc
}

func (s *Schedule) pastCutoff(now time.Time) bool {
	local := now.In(s.loc)
	cur := local.Hour()*60 + local.Minute()
	return cur >= s.cutoff.hour*60+s.cutoff.minute
}

// TargetDate 未指定日期时的目标日：今天，过了截止点则是明天
func (s *Schedule) TargetDate(now time.Time) time.Time {
	local := now.In(s.loc)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	if s.pastCutoff(now) {
		date = date.AddDate(0, 0, 1)
	}
	return date
}

// DateFor 指定星期几的目标日：下一次该星期，今天算命中；
// 今天命中但已过截止点则顺延整一周。
func (s *Schedule) DateFor(now time.Time, weekday time.Weekday) time.Time {
	local := now.In(s.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)

	days := (int(weekday) - int(local.Weekday()) + 7) % 7
	if days == 0 && s.pastCutoff(now) {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

// SlotTimes 给定日期的全部时段起点
func (s *Schedule) SlotTimes(date time.Time) []time.Time {
	local := date.In(s.loc)
	out := make([]time.Time, 0, len(s.slots))
	for _, tod := range s.slots {
		out = append(out, time.Date(local.Year(), local.Month(), local.Day(),
			tod.hour, tod.minute, 0, 0, s.loc))
	}
	return out
}

// DayBounds 日配额统计区间 [start, end)
func (s *Schedule) DayBounds(date time.Time) (time.Time, time.Time) {
	local := date.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// ReminderWindow 提醒扫描窗口：now+lead 前后各 tolerance。
// 窗口必须不小于轮询间隔，否则时点可能整个落在两次轮询之间。
func ReminderWindow(now time.Time, lead, tolerance time.Duration) (time.Time, time.Time) {
	target := now.Add(lead)
	return target.Add(-tolerance), target.Add(tolerance)
}
