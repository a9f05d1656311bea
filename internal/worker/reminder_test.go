package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/repository"
	"github.com/qs3c/resv_go_server/internal/testutil"
)

func reminderConfig() *config.Config {
	return &config.Config{
		Reminder: config.ReminderConfig{
			LeadMinutes:     30,
			IntervalSeconds: 30,
			WindowSeconds:   90,
		},
		Bot: config.BotConfig{
			AdminIDs: []int64{9001, 9002},
		},
	}
}

func TestReminder_Poll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	resRepo := repository.NewReservationRepository(db)
	gw := testutil.NewFakeGateway()
	worker := NewReminder(resRepo, gw, nil, reminderConfig())

	now := time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC)
	user := testutil.TestUser(t, db)
	// 20:30 开始，30分钟提前量，20:00 正好落在提醒窗口
	booked := testutil.TestReservation(t, db, user.ID, now.Add(30*time.Minute),
		testutil.WithStatus(model.ReservationBooked))
	// 未确认的预约不提醒
	testutil.TestReservation(t, db, user.ID, now.Add(30*time.Minute+time.Second))
	// 窗口之外的预约不提醒
	testutil.TestReservation(t, db, user.ID, now.Add(2*time.Hour),
		testutil.WithStatus(model.ReservationBooked))

	sent, err := worker.Poll(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// 两位管理员各收到一条
	assert.Len(t, gw.MessagesTo(9001), 1)
	assert.Len(t, gw.MessagesTo(9002), 1)

	res, err := resRepo.GetByID(booked.ID)
	require.NoError(t, err)
	assert.NotNil(t, res.ReminderSentAt)
}

func TestReminder_Poll_CarriesFullContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	resRepo := repository.NewReservationRepository(db)
	gw := testutil.NewFakeGateway()
	worker := NewReminder(resRepo, gw, nil, reminderConfig())

	now := time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC)
	user := testutil.TestUser(t, db)
	testutil.TestReservation(t, db, user.ID, now.Add(30*time.Minute),
		testutil.WithStatus(model.ReservationBooked),
		testutil.WithReservationUsername("alice"),
		testutil.WithPromo("https://t.me/mygroup", "banner_1",
			"https://t.me/dest1\nhttps://t.me/dest2"))

	sent, err := worker.Poll(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	msgs := gw.MessagesTo(9001)
	require.Len(t, msgs, 1)
	text := msgs[0].Text
	assert.Contains(t, text, "用户名：alice")
	assert.Contains(t, text, "预约时段：2025-04-01 20:30")
	assert.Contains(t, text, "群链接：https://t.me/mygroup")
	assert.Contains(t, text, "宣传横幅：有")
	assert.Contains(t, text, "目标群链接：https://t.me/dest1\nhttps://t.me/dest2")
}

func TestReminder_Poll_NoPromoShowsPlaceholders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	resRepo := repository.NewReservationRepository(db)
	gw := testutil.NewFakeGateway()
	worker := NewReminder(resRepo, gw, nil, reminderConfig())

	now := time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC)
	user := testutil.TestUser(t, db)
	testutil.TestReservation(t, db, user.ID, now.Add(30*time.Minute),
		testutil.WithStatus(model.ReservationBooked))

	sent, err := worker.Poll(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	msgs := gw.MessagesTo(9001)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "用户名：无")
	assert.Contains(t, msgs[0].Text, "群链接：无")
	assert.Contains(t, msgs[0].Text, "宣传横幅：无")
	assert.Contains(t, msgs[0].Text, "目标群链接：无")
}

func TestReminder_Poll_ExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	resRepo := repository.NewReservationRepository(db)
	gw := testutil.NewFakeGateway()
	worker := NewReminder(resRepo, gw, nil, reminderConfig())

	now := time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC)
	user := testutil.TestUser(t, db)
	testutil.TestReservation(t, db, user.ID, now.Add(30*time.Minute),
		testutil.WithStatus(model.ReservationBooked))

	// 连续轮询同一时刻，只有第一轮发出提醒
	for i := 0; i < 3; i++ {
		sent, err := worker.Poll(context.Background(), now.Add(time.Duration(i)*10*time.Second))
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, 1, sent)
		} else {
			assert.Zero(t, sent)
		}
	}

	assert.Len(t, gw.MessagesTo(9001), 1)
}

func TestReminder_Poll_AdminSendFailureStillMarks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	resRepo := repository.NewReservationRepository(db)
	gw := testutil.NewFakeGateway()
	gw.FailFor(9001, assert.AnError)
	worker := NewReminder(resRepo, gw, nil, reminderConfig())

	now := time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC)
	user := testutil.TestUser(t, db)
	booked := testutil.TestReservation(t, db, user.ID, now.Add(30*time.Minute),
		testutil.WithStatus(model.ReservationBooked))

	sent, err := worker.Poll(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// 第一位管理员失败不影响第二位，也不会重复提醒
	assert.Empty(t, gw.MessagesTo(9001))
	assert.Len(t, gw.MessagesTo(9002), 1)

	res, err := resRepo.GetByID(booked.ID)
	require.NoError(t, err)
	assert.NotNil(t, res.ReminderSentAt)
}
