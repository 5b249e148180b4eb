package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dukerupert/purrfect/internal/database"
	"github.com/dukerupert/purrfect/internal/foodlog"
	"github.com/dukerupert/purrfect/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func setupAccountTestDB(t *testing.T) (*Service, *store.KVStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	kv := store.NewKVStore(db)
	svc := NewService(kv, slog.Default())
	svc.cost = bcrypt.MinCost
	return svc, kv
}

func TestSignUpHashesAndLogsIn(t *testing.T) {
	svc, kv := setupAccountTestDB(t)
	ctx := context.Background()

	if err := svc.SignUp(ctx, " whiskers ", "tuna123"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	raw, ok, err := kv.Get(ctx, KeyUser)
	if err != nil || !ok {
		t.Fatalf("get user: %v, ok=%v", err, ok)
	}
	if strings.Contains(raw, "tuna123") {
		t.Errorf("stored user contains the plaintext password: %s", raw)
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Username != "whiskers" {
		t.Errorf("username = %q, want %q", rec.Username, "whiskers")
	}

	in, err := svc.LoggedIn(ctx)
	if err != nil {
		t.Fatalf("logged in: %v", err)
	}
	if !in {
		t.Error("expected logged in after sign up")
	}
}

func TestSignUpErrors(t *testing.T) {
	svc, _ := setupAccountTestDB(t)
	ctx := context.Background()

	if err := svc.SignUp(ctx, "", "pw"); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("empty username: err = %v", err)
	}
	if err := svc.SignUp(ctx, "cat", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("empty password: err = %v", err)
	}
	if err := svc.SignUp(ctx, "cat", "pw"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := svc.SignUp(ctx, "dog", "pw"); !errors.Is(err, ErrUserExists) {
		t.Errorf("second sign up: err = %v, want ErrUserExists", err)
	}
}

func TestLoginLogout(t *testing.T) {
	svc, _ := setupAccountTestDB(t)
	ctx := context.Background()

	if err := svc.Login(ctx, "cat", "pw"); !errors.Is(err, ErrNoUser) {
		t.Errorf("login before sign up: err = %v, want ErrNoUser", err)
	}
	if err := svc.SignUp(ctx, "cat", "pw"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if in, _ := svc.LoggedIn(ctx); in {
		t.Error("expected logged out")
	}

	if err := svc.Login(ctx, "cat", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if err := svc.Login(ctx, "dog", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong username: err = %v", err)
	}
	if in, _ := svc.LoggedIn(ctx); in {
		t.Error("failed login should not log in")
	}

	if err := svc.Login(ctx, "cat", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if in, _ := svc.LoggedIn(ctx); !in {
		t.Error("expected logged in")
	}
}

func TestLoginUpgradesPlaintextRecord(t *testing.T) {
	svc, kv := setupAccountTestDB(t)
	ctx := context.Background()

	if err := kv.Set(ctx, KeyUser, `{"username":"cat","password":"pw"}`); err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	if err := svc.Login(ctx, "cat", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if err := svc.Login(ctx, "cat", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	rec, _, err := svc.load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Password != "" {
		t.Error("plaintext password should be removed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("pw")); err != nil {
		t.Errorf("hash does not match: %v", err)
	}

	// The upgraded record still logs in.
	if err := svc.Login(ctx, "cat", "pw"); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestUsername(t *testing.T) {
	svc, _ := setupAccountTestDB(t)
	ctx := context.Background()

	name, err := svc.Username(ctx)
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	if name != "" {
		t.Errorf("username = %q, want empty", name)
	}
	if err := svc.SignUp(ctx, "cat", "pw"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if name, _ := svc.Username(ctx); name != "cat" {
		t.Errorf("username = %q, want %q", name, "cat")
	}
}

func TestCorruptUserRecord(t *testing.T) {
	svc, kv := setupAccountTestDB(t)
	ctx := context.Background()
	if err := kv.Set(ctx, KeyUser, "{not json"); err != nil {
		t.Fatalf("set: %v", err)
	}

	err := svc.Login(ctx, "whiskers", "tuna123")
	if !errors.Is(err, foodlog.ErrCorruptState) {
		t.Fatalf("login err = %v, want ErrCorruptState", err)
	}
	var cse *foodlog.CorruptStateError
	if !errors.As(err, &cse) || cse.Key != KeyUser {
		t.Errorf("err = %v, want CorruptStateError for %q", err, KeyUser)
	}
	if _, err := svc.Username(ctx); !errors.Is(err, foodlog.ErrCorruptState) {
		t.Errorf("username err = %v, want ErrCorruptState", err)
	}
	if err := svc.SignUp(ctx, "other", "x"); !errors.Is(err, foodlog.ErrCorruptState) {
		t.Errorf("sign up err = %v, want ErrCorruptState", err)
	}

	raw, _, _ := kv.Get(ctx, KeyUser)
	if raw != "{not json" {
		t.Errorf("corrupt record was overwritten: %q", raw)
	}
}

func TestConcurrentSignUpKeepsFirstAccount(t *testing.T) {
	svc, _ := setupAccountTestDB(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.SignUp(ctx, fmt.Sprintf("cat%d", i), "tuna")
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatalf("sign ups %d and %d both succeeded", winner, i)
			}
			winner = i
		case !errors.Is(err, ErrUserExists):
			t.Errorf("sign up %d: err = %v, want ErrUserExists", i, err)
		}
	}
	if winner < 0 {
		t.Fatal("no sign up succeeded")
	}

	name, err := svc.Username(ctx)
	if err != nil {
		t.Fatalf("username: %v", err)
	}
	if want := fmt.Sprintf("cat%d", winner); name != want {
		t.Errorf("username = %q, want %q", name, want)
	}
	if err := svc.Login(ctx, name, "tuna"); err != nil {
		t.Errorf("login as winner: %v", err)
	}
}
