package httpserver

import (
	"context"
	"testing"

	"github.com/and161185/macronizer/internal/model"
)

func TestWithUser_And_UserFromCtx(t *testing.T) {
	t.Parallel()

	if u, ok := UserFromCtx(context.Background()); ok || u != nil {
		t.Fatalf("expected no user in empty ctx")
	}

	want := &model.User{ID: 7, Username: "johndoe"}
	got, ok := UserFromCtx(WithUser(context.Background(), want))
	if !ok {
		t.Fatalf("expected user in ctx")
	}
	if got.ID != want.ID {
		t.Fatalf("mismatch: got %d, want %d", got.ID, want.ID)
	}

	bad := context.WithValue(context.Background(), userKey, "not-a-user")
	if u, ok := UserFromCtx(bad); ok || u != nil {
		t.Fatalf("expected miss on wrong typed value")
	}
	if _, ok := UserFromCtx(WithUser(context.Background(), nil)); ok {
		t.Fatalf("nil user must read as anonymous")
	}
}
