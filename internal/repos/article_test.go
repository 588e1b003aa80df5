package repos_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/repos"
	"github.com/medscribe/medscribe-backend/internal/repos/testutil"
	"github.com/medscribe/medscribe-backend/internal/types"
)

func createTestUser(t *testing.T, tx *gorm.DB) *types.User {
	t.Helper()
	user := &types.User{
		ID:       uuid.New(),
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()),
		Password: "hashed",
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestArticleRepoCreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewArticleRepo(db, log)
	ctx := context.Background()

	user := createTestUser(t, tx)
	article := &types.Article{
		ID:      uuid.New(),
		UserID:  user.ID,
		Kind:    "title",
		Title:   "ACL repair outcomes",
		Content: "Title A\nTitle B",
		TaskID:  "task-1",
	}
	created, err := repo.Create(ctx, tx, []*types.Article{article})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d", len(created))
	}

	got, err := repo.GetByID(ctx, tx, article.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != article.Content || got.Kind != "title" || got.TaskID != "task-1" {
		t.Fatalf("got = %+v", got)
	}
}

func TestArticleRepoListByUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewArticleRepo(db, log)
	ctx := context.Background()

	user := createTestUser(t, tx)
	other := createTestUser(t, tx)

	now := time.Now()
	for i, kind := range []string{"title", "article", "title"} {
		a := &types.Article{
			ID:        uuid.New(),
			UserID:    user.ID,
			Kind:      kind,
			Title:     fmt.Sprintf("a%d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if _, err := repo.Create(ctx, tx, []*types.Article{a}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := repo.Create(ctx, tx, []*types.Article{{
		ID: uuid.New(), UserID: other.ID, Kind: "title", Title: "not mine",
	}}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	all, err := repo.ListByUser(ctx, tx, user.ID, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("list all = %d, want 3", len(all))
	}
	// Newest first.
	if all[0].Title != "a2" {
		t.Fatalf("first = %q, want a2", all[0].Title)
	}

	titles, err := repo.ListByUser(ctx, tx, user.ID, "title", 0)
	if err != nil {
		t.Fatalf("list kind: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("list title = %d, want 2", len(titles))
	}

	limited, err := repo.ListByUser(ctx, tx, user.ID, "", 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited = %d, want 1", len(limited))
	}
}

func TestArticleRepoDeleteScopedToUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewArticleRepo(db, log)
	ctx := context.Background()

	owner := createTestUser(t, tx)
	intruder := createTestUser(t, tx)

	article := &types.Article{ID: uuid.New(), UserID: owner.ID, Kind: "title", Title: "mine"}
	if _, err := repo.Create(ctx, tx, []*types.Article{article}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Wrong user cannot delete.
	if err := repo.DeleteByID(ctx, tx, intruder.ID, article.ID); err != nil {
		t.Fatalf("delete as intruder: %v", err)
	}
	if _, err := repo.GetByID(ctx, tx, article.ID); err != nil {
		t.Fatalf("article vanished after foreign delete: %v", err)
	}

	if err := repo.DeleteByID(ctx, tx, owner.ID, article.ID); err != nil {
		t.Fatalf("delete as owner: %v", err)
	}
	if _, err := repo.GetByID(ctx, tx, article.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("get after delete = %v, want ErrRecordNotFound", err)
	}
}
