package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/testutil"
)

func TestVerificationRepository_Decide_OneShot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVerificationRepository(db)
	user := testutil.TestUser(t, db)
	req := testutil.TestVerification(t, db, user.ID)

	require.NoError(t, repo.Decide(req.ID, model.ReviewApproved, 42, nil))

	reason := "wrong"
	err := repo.Decide(req.ID, model.ReviewRejected, 42, &reason)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	got, err := repo.GetByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewApproved, got.Status)
}

func TestVerificationRepository_Decide_KeepsRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVerificationRepository(db)
	user := testutil.TestUser(t, db)
	req := testutil.TestVerification(t, db, user.ID)

	reason := "incomplete"
	require.NoError(t, repo.Decide(req.ID, model.ReviewRejected, 42, &reason))

	// 驳回后记录保留，可再次提交新申请
	got, err := repo.GetByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRejected, got.Status)
	require.NotNil(t, got.DecisionReason)
	assert.Equal(t, reason, *got.DecisionReason)

	second := testutil.TestVerification(t, db, user.ID)
	assert.NotEqual(t, req.ID, second.ID)
}

func TestVerificationRepository_UpsertCard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewVerificationRepository(db)
	user := testutil.TestUser(t, db)

	_, err := repo.VerifiedCard(user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	verifier := int64(42)
	err = repo.UpsertCard(&model.VerifiedCard{
		UserID:     user.ID,
		CardNumber: "1111222233334444",
		VerifiedAt: time.Now(),
		VerifierID: &verifier,
	})
	require.NoError(t, err)

	card, err := repo.VerifiedCard(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "1111222233334444", card.CardNumber)

	// 后来的审批覆盖旧卡
	err = repo.UpsertCard(&model.VerifiedCard{
		UserID:     user.ID,
		CardNumber: "5555666677778888",
		VerifiedAt: time.Now(),
	})
	require.NoError(t, err)

	card, err = repo.VerifiedCard(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "5555666677778888", card.CardNumber)
}
