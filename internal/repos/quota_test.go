package repos_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/repos"
	"github.com/medscribe/medscribe-backend/internal/repos/testutil"
	"github.com/medscribe/medscribe-backend/internal/types"
)

func TestQuotaRepoSaveAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewQuotaRepo(db, log)
	ctx := context.Background()

	user := createTestUser(t, tx)
	quota := &types.Quota{
		ID:        uuid.New(),
		UserID:    user.ID,
		Feature:   "title",
		Remaining: 5,
	}
	if err := repo.Save(ctx, tx, quota); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Get(ctx, tx, user.ID, "title")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Remaining != 5 || got.Used != 0 {
		t.Fatalf("got = %+v", got)
	}

	got.Remaining--
	got.Used++
	if err := repo.Save(ctx, tx, got); err != nil {
		t.Fatalf("save update: %v", err)
	}
	again, err := repo.GetForUpdate(ctx, tx, user.ID, "title")
	if err != nil {
		t.Fatalf("get for update: %v", err)
	}
	if again.Remaining != 4 || again.Used != 1 {
		t.Fatalf("after consume = %+v", again)
	}

	if _, err := repo.Get(ctx, tx, user.ID, "article"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("missing feature = %v, want ErrRecordNotFound", err)
	}
}

func TestQuotaRepoListByUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewQuotaRepo(db, log)
	ctx := context.Background()

	user := createTestUser(t, tx)
	for _, feature := range []string{"title", "article", "outline"} {
		if err := repo.Save(ctx, tx, &types.Quota{
			ID: uuid.New(), UserID: user.ID, Feature: feature, Remaining: 3,
		}); err != nil {
			t.Fatalf("save %s: %v", feature, err)
		}
	}

	quotas, err := repo.ListByUser(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(quotas) != 3 {
		t.Fatalf("list = %d, want 3", len(quotas))
	}
}
