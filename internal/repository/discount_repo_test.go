package repository

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/testutil"
)

func TestDiscountRepository_Create_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDiscountRepository(db)
	existing := testutil.TestDiscount(t, db, "spring20")

	err := repo.Create(&model.DiscountCode{
		Code:      existing.Code,
		Percent:   30,
		MaxUses:   5,
		CreatedBy: 1,
		ExpiresAt: time.Now().Add(time.Hour),
		IsActive:  true,
	})
	assert.ErrorIs(t, err, ErrCodeExists)
}

func TestDiscountRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDiscountRepository(db)
	dc := testutil.TestDiscount(t, db, "spring20")

	got, err := repo.GetByCode(dc.Code)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Percent)
	assert.Equal(t, 0, got.UsedCount)
}

func TestDiscountRepository_Consume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDiscountRepository(db)
	testutil.TestDiscount(t, db, "once", testutil.WithMaxUses(1))

	ok, err := repo.Consume("once", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// 只有一次有效使用，第二次必须干净地失败
	ok, err = repo.Consume("once", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiscountRepository_Consume_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDiscountRepository(db)
	testutil.TestDiscount(t, db, "old", testutil.WithExpiresAt(time.Now().Add(-time.Hour)))

	ok, err := repo.Consume("old", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiscountRepository_Consume_Inactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDiscountRepository(db)
	testutil.TestDiscount(t, db, "off", testutil.WithActive(false))

	ok, err := repo.Consume("off", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

// 50 个并发核销，max_uses=10，必须恰好 10 个成功
func TestDiscountRepository_Consume_ConcurrentRace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDiscountRepository(db)
	testutil.TestDiscount(t, db, "limited", testutil.WithMaxUses(10))

	const workers = 50
	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Consume("limited", time.Now())
			if err == nil && ok {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), successes)

	got, err := repo.GetByCode("limited")
	require.NoError(t, err)
	assert.Equal(t, 10, got.UsedCount)
}
