package store

import (
	"testing"
)

func TestCreateAndAuthenticate(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db)

	if u.PasswordHash == "secret123" {
		t.Fatal("password stored in plain text")
	}

	got, err := db.Authenticate("lin", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("authenticated user id = %d, want %d", got.ID, u.ID)
	}

	if _, err := db.Authenticate("lin", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := db.Authenticate("nobody", "secret123"); err != ErrInvalidCredentials {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	db := testDB(t)
	testUser(t, db)

	if _, err := db.CreateUser("lin", "other@example.com", "pw"); err == nil {
		t.Error("expected duplicate username to be rejected")
	}
}

func TestUpdateProfile(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db)

	city := "杭州"
	sig := "leaf by leaf"
	err := db.UpdateProfile(u.ID, ProfileUpdate{LocationCity: &city, Signature: &sig})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	got, err := db.GetUser(u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.LocationCity != "杭州" {
		t.Errorf("city = %q, want 杭州", got.LocationCity)
	}
	if got.Signature != "leaf by leaf" {
		t.Errorf("signature = %q", got.Signature)
	}
	// Untouched fields survive partial updates.
	if got.Username != "lin" {
		t.Errorf("username = %q, want lin", got.Username)
	}
}

func TestChangePassword(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db)

	if err := db.ChangePassword(u.ID, "wrong", "newpw"); err != ErrInvalidCredentials {
		t.Errorf("wrong old password: err = %v, want ErrInvalidCredentials", err)
	}

	if err := db.ChangePassword(u.ID, "secret123", "newpw"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := db.Authenticate("lin", "newpw"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := db.Authenticate("lin", "secret123"); err != ErrInvalidCredentials {
		t.Errorf("old password still accepted")
	}
}

func TestTokenLifecycle(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db)

	token, err := db.IssueToken(u.ID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	got, err := db.UserByToken(token)
	if err != nil {
		t.Fatalf("UserByToken: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("token resolved to %+v, want user %d", got, u.ID)
	}

	if err := db.RevokeToken(token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	got, err = db.UserByToken(token)
	if err != nil {
		t.Fatalf("UserByToken after revoke: %v", err)
	}
	if got != nil {
		t.Error("revoked token still resolves")
	}

	if got, _ := db.UserByToken("not-a-token"); got != nil {
		t.Error("unknown token resolved to a user")
	}
}
