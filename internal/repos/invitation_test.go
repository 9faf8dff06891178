package repos

import (
	"context"
	"testing"

	"github.com/radiq/radiq-backend/internal/repos/testutil"
)

func TestConsumeUseStopsAtMaxUses(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewInvitationRepo(tx, testutil.Logger(t))

	study := testutil.SeedStudy(t, ctx, tx, "consume-use")
	maxUses := 2
	invite := testutil.SeedInvitation(t, ctx, tx, study.ID, &maxUses)

	for i := 0; i < 2; i++ {
		ok, err := repo.ConsumeUse(ctx, tx, invite.ID)
		if err != nil {
			t.Fatalf("ConsumeUse %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("ConsumeUse %d: want consumed, got guard rejection", i)
		}
	}

	ok, err := repo.ConsumeUse(ctx, tx, invite.ID)
	if err != nil {
		t.Fatalf("ConsumeUse over limit: %v", err)
	}
	if ok {
		t.Fatalf("ConsumeUse over limit: guard did not hold")
	}

	reloaded, err := repo.GetByToken(ctx, tx, invite.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if reloaded == nil || reloaded.UsedCount != 2 {
		t.Fatalf("used count: want=2 got=%+v", reloaded)
	}
}

func TestConsumeUseUnlimited(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewInvitationRepo(tx, testutil.Logger(t))

	study := testutil.SeedStudy(t, ctx, tx, "consume-unlimited")
	invite := testutil.SeedInvitation(t, ctx, tx, study.ID, nil)

	for i := 0; i < 5; i++ {
		ok, err := repo.ConsumeUse(ctx, tx, invite.ID)
		if err != nil {
			t.Fatalf("ConsumeUse %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("ConsumeUse %d: unlimited token rejected", i)
		}
	}
}

func TestGetByTokenMissing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewInvitationRepo(tx, testutil.Logger(t))
	invite, err := repo.GetByToken(context.Background(), tx, "missing-token")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if invite != nil {
		t.Fatalf("want nil for unknown token, got %+v", invite)
	}
}
