package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/resv_go_server/internal/repository"
	"github.com/qs3c/resv_go_server/internal/testutil"
)

func TestParseValidity(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{"30d", 30 * 24 * time.Hour, true},
		{"12h", 12 * time.Hour, true},
		{"90m", 90 * time.Minute, true},
		{" 7D ", 7 * 24 * time.Hour, true},
		{"1 h", time.Hour, true},
		{"", 0, false},
		{"30", 0, false},
		{"d30", 0, false},
		{"30s", 0, false},
		{"-5d", 0, false},
	}

	for _, c := range cases {
		got, err := ParseValidity(c.raw)
		if c.ok {
			assert.NoError(t, err, c.raw)
			assert.Equal(t, c.want, got, c.raw)
		} else {
			assert.ErrorIs(t, err, ErrBadDuration, c.raw)
		}
	}
}

func TestDiscountService_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewDiscountService(repository.NewDiscountRepository(db))

	dc, err := svc.Create("Spring20", 20, 10, 30*24*time.Hour, 999)
	require.NoError(t, err)
	// 码统一存小写
	assert.Equal(t, "spring20", dc.Code)
	assert.True(t, dc.IsActive)

	_, err = svc.Create("spring20", 30, 5, time.Hour, 999)
	assert.ErrorIs(t, err, repository.ErrCodeExists)
}

func TestDiscountService_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewDiscountService(repository.NewDiscountRepository(db))

	_, err := svc.Create("x", 20, 10, time.Hour, 999)
	assert.ErrorIs(t, err, ErrBadCode)

	_, err = svc.Create("has space", 20, 10, time.Hour, 999)
	assert.ErrorIs(t, err, ErrBadCode)

	_, err = svc.Create("ok_code", 0, 10, time.Hour, 999)
	assert.ErrorIs(t, err, ErrBadPercent)

	_, err = svc.Create("ok_code", 101, 10, time.Hour, 999)
	assert.ErrorIs(t, err, ErrBadPercent)

	_, err = svc.Create("ok_code", 20, 0, time.Hour, 999)
	assert.ErrorIs(t, err, ErrBadMaxUses)

	_, err = svc.Create("ok_code", 20, 10, 0, 999)
	assert.ErrorIs(t, err, ErrBadDuration)
}

func TestDiscountService_Validate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewDiscountService(repository.NewDiscountRepository(db))
	now := time.Now()

	testutil.TestDiscount(t, db, "good")
	testutil.TestDiscount(t, db, "off", testutil.WithActive(false))
	testutil.TestDiscount(t, db, "old", testutil.WithExpiresAt(now.Add(-time.Hour)))
	testutil.TestDiscount(t, db, "done", testutil.WithMaxUses(3), testutil.WithUsedCount(3))

	ok, reason, percent, err := svc.Validate("GOOD", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ReasonOK, reason)
	assert.Equal(t, 20, percent)

	cases := []struct {
		code   string
		reason string
	}{
		{"missing", ReasonNotFound},
		{"off", ReasonInactive},
		{"old", ReasonExpired},
		{"done", ReasonUsedUp},
	}
	for _, c := range cases {
		ok, reason, _, err := svc.Validate(c.code, now)
		require.NoError(t, err, c.code)
		assert.False(t, ok, c.code)
		assert.Equal(t, c.reason, reason, c.code)
	}
}

func TestDiscountService_ValidateThenConsume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewDiscountService(repository.NewDiscountRepository(db))
	now := time.Now()
	testutil.TestDiscount(t, db, "once", testutil.WithMaxUses(1))

	ok, _, _, err := svc.Validate("once", now)
	require.NoError(t, err)
	require.True(t, ok)

	// 校验不占用次数
	dc, err := repository.NewDiscountRepository(db).GetByCode("once")
	require.NoError(t, err)
	assert.Equal(t, 0, dc.UsedCount)

	consumed, err := svc.Consume("once", now)
	require.NoError(t, err)
	assert.True(t, consumed)

	consumed, err = svc.Consume("once", now)
	require.NoError(t, err)
	assert.False(t, consumed)

	ok, reason, _, err := svc.Validate("once", now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReasonUsedUp, reason)
}

func TestDiscountService_Deactivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewDiscountService(repository.NewDiscountRepository(db))
	now := time.Now()
	testutil.TestDiscount(t, db, "temp")

	require.NoError(t, svc.Deactivate("TEMP"))

	ok, reason, _, err := svc.Validate("temp", now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReasonInactive, reason)
}

func TestDescribeReason(t *testing.T) {
	assert.Equal(t, "折扣码不存在", DescribeReason(ReasonNotFound))
	assert.Equal(t, "折扣码已停用", DescribeReason(ReasonInactive))
	assert.Equal(t, "折扣码已过期", DescribeReason(ReasonExpired))
	assert.Equal(t, "折扣码已被用完", DescribeReason(ReasonUsedUp))
}
