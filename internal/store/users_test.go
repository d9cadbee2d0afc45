package store

import (
	"context"
	"testing"
	"time"

	"picstore/internal/models"
)

func TestUserLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	created, err := st.CreateUser(ctx, " Alice ", "hash-1", models.RoleMember, now)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected positive id, got %d", created.ID)
	}
	if created.Username != "alice" {
		t.Fatalf("expected normalized username alice, got %q", created.Username)
	}

	byID, err := st.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID == nil || byID.Username != "alice" || byID.Role != models.RoleMember {
		t.Fatalf("unexpected user: %+v", byID)
	}
	if byID.ProfileImageID != nil {
		t.Fatalf("expected no profile image, got %v", *byID.ProfileImageID)
	}
	if !byID.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, byID.CreatedAt)
	}

	byName, err := st.GetUserByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName == nil || byName.ID != created.ID {
		t.Fatalf("expected user %d, got %+v", created.ID, byName)
	}

	if _, err := st.CreateUser(ctx, "alice", "hash-2", models.RoleAdmin, now); err == nil {
		t.Fatal("expected duplicate username to fail")
	}

	missing, err := st.GetUserByID(ctx, 999999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}

	mustCreateUser(t, st, "root", models.RoleAdmin)
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Role != models.RoleAdmin {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestCreateUserValidation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := st.CreateUser(ctx, "  ", "hash", models.RoleMember, now); err == nil {
		t.Fatal("expected error for blank username")
	}
	if _, err := st.CreateUser(ctx, "bob", "", models.RoleMember, now); err == nil {
		t.Fatal("expected error for blank hash")
	}
	if _, err := st.CreateUser(ctx, "bob", "hash", models.Role("owner"), now); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestSessionLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	user := mustCreateUser(t, st, "alice", models.RoleMember)

	if err := st.CreateSession(ctx, user.ID, "token-hash", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := st.GetUserBySessionTokenHash(ctx, "token-hash", now)
	if err != nil {
		t.Fatalf("get by session: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("expected session user %d, got %+v", user.ID, got)
	}

	expired, err := st.GetUserBySessionTokenHash(ctx, "token-hash", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("get expired: %v", err)
	}
	if expired != nil {
		t.Fatalf("expected expired session to resolve nil, got %+v", expired)
	}

	if err := st.RevokeSessionByTokenHash(ctx, "token-hash", now); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := st.GetUserBySessionTokenHash(ctx, "token-hash", now)
	if err != nil {
		t.Fatalf("get revoked: %v", err)
	}
	if revoked != nil {
		t.Fatalf("expected revoked session to resolve nil, got %+v", revoked)
	}
}

func TestSessionForDisabledUser(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	user := mustCreateUser(t, st, "alice", models.RoleMember)

	if err := st.CreateSession(ctx, user.ID, "token-hash", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}
	updated, err := st.SetUserDisabled(ctx, user.ID, true, now)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if updated == nil || !updated.Disabled {
		t.Fatalf("expected disabled user, got %+v", updated)
	}

	got, err := st.GetUserBySessionTokenHash(ctx, "token-hash", now)
	if err != nil {
		t.Fatalf("get by session: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for disabled user, got %+v", got)
	}

	missing, err := st.SetUserDisabled(ctx, 424242, true, now)
	if err != nil {
		t.Fatalf("disable missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}
}
