package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"annuaire/backend/store"
	"annuaire/backend/totp"
)

const (
	userSecret   = "JBSWY3DPEHPK3PXP"
	unlockSecret = "NB2WY3DPEHPK3PXPJBSWY3DP"
)

func newMachine(t *testing.T) *Machine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.txt")
	content := "alice:pw1:" + userSecret + ":admin\nbob:pw2:none:user\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return &Machine{
		Users:           store.NewUsers(path),
		UnlockSecret:    func() (string, error) { return unlockSecret, nil },
		InvalidateOnNav: true,
		Now:             func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func codeFor(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.Generate(secret, at)
	if err != nil {
		t.Fatal(err)
	}
	return code
}

func TestFullLoginFlow(t *testing.T) {
	m := newMachine(t)
	var st State

	if err := m.SubmitPassword(&st, "alice", "pw1"); err != nil {
		t.Fatalf("SubmitPassword failed: %v", err)
	}
	if st.Stage != PasswordVerified || st.UserID != "alice" {
		t.Fatalf("After password: %+v", st)
	}

	code := codeFor(t, userSecret, m.now())
	if err := m.SubmitSecondFactor(&st, code); err != nil {
		t.Fatalf("SubmitSecondFactor failed: %v", err)
	}
	if st.Stage != Authenticated || !st.JustAuthenticated {
		t.Fatalf("After second factor: %+v", st)
	}
}

func TestSecondFactor_WindowTolerance(t *testing.T) {
	base := time.Unix(1700000000, 0)
	// Code generated one step in the past still passes, two steps fails.
	cases := []struct {
		offset time.Duration
		wantOK bool
	}{
		{-30 * time.Second, true},
		{30 * time.Second, true},
		{-60 * time.Second, false},
		{60 * time.Second, false},
	}
	for _, c := range cases {
		m := newMachine(t)
		m.Now = func() time.Time { return base }
		var st State
		if err := m.SubmitPassword(&st, "alice", "pw1"); err != nil {
			t.Fatal(err)
		}
		code := codeFor(t, userSecret, base.Add(c.offset))
		err := m.SubmitSecondFactor(&st, code)
		if c.wantOK && err != nil {
			t.Errorf("Code from offset %v should pass, got %v", c.offset, err)
		}
		if !c.wantOK {
			if !errors.Is(err, ErrInvalidCode) {
				t.Errorf("Code from offset %v should fail with ErrInvalidCode, got %v", c.offset, err)
			}
			if st.Stage != PasswordVerified {
				t.Errorf("A failed code must keep the stage at PasswordVerified, got %v", st.Stage)
			}
		}
	}
}

func TestSubmitPassword_Failures(t *testing.T) {
	m := newMachine(t)

	var st State
	if err := m.SubmitPassword(&st, "nobody", "x"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Expected ErrUnknownUser, got %v", err)
	}
	if err := m.SubmitPassword(&st, "alice", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if st.Stage != Anonymous {
		t.Errorf("A failed password must leave the stage Anonymous, got %v", st.Stage)
	}
}

func TestSubmitPassword_ResetsHigherStage(t *testing.T) {
	m := newMachine(t)
	st := State{Stage: Authenticated, UserID: "alice", JustAuthenticated: true}

	if err := m.SubmitPassword(&st, "alice", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatal(err)
	}
	if st.Stage != Anonymous || st.UserID != "" {
		t.Errorf("SubmitPassword must restart from Anonymous, got %+v", st)
	}
}

func TestDisabledSecondFactor_SkipsStraightToAuthenticated(t *testing.T) {
	m := newMachine(t)
	var st State

	if err := m.SubmitPassword(&st, "bob", "pw2"); err != nil {
		t.Fatal(err)
	}
	if st.Stage != Authenticated || !st.JustAuthenticated {
		t.Errorf("An account without second factor should land Authenticated, got %+v", st)
	}
}

func TestSecondFactor_RequiresPendingLogin(t *testing.T) {
	m := newMachine(t)
	var st State
	if err := m.SubmitSecondFactor(&st, "123456"); !errors.Is(err, ErrNoPendingLogin) {
		t.Errorf("Expected ErrNoPendingLogin, got %v", err)
	}
}

func TestRequestPrivilege_AnyStage(t *testing.T) {
	m := newMachine(t)
	code := codeFor(t, unlockSecret, m.now())

	// While anonymous.
	var st State
	if !m.RequestPrivilege(&st, code) {
		t.Fatal("Unlock code should grant privilege while Anonymous")
	}
	if !st.Privileged || st.Stage != Anonymous {
		t.Errorf("Privilege must not touch the stage: %+v", st)
	}

	// While authenticated.
	st = State{Stage: Authenticated, UserID: "alice"}
	if !m.RequestPrivilege(&st, code) {
		t.Fatal("Unlock code should grant privilege while Authenticated")
	}
	if !st.Privileged {
		t.Error("Privileged flag not set")
	}
}

func TestRequestPrivilege_BadCodeChangesNothing(t *testing.T) {
	m := newMachine(t)
	st := State{Stage: PasswordVerified, UserID: "alice"}

	if m.RequestPrivilege(&st, "000000") {
		t.Error("A wrong code must not grant privilege")
	}
	if m.RequestPrivilege(&st, "une recherche normale") {
		t.Error("A non-code query must not grant privilege")
	}
	if st.Privileged || st.Stage != PasswordVerified {
		t.Errorf("State must be unchanged: %+v", st)
	}
}

func TestRequestPrivilege_MalformedUnlockSecret(t *testing.T) {
	m := newMachine(t)
	m.UnlockSecret = func() (string, error) { return "pas du base32", nil }

	var st State
	if m.RequestPrivilege(&st, "123456") {
		t.Error("A malformed unlock secret must never grant privilege")
	}
}

func TestNavigate_AutoInvalidation(t *testing.T) {
	m := newMachine(t)
	st := State{Stage: Authenticated, UserID: "alice", JustAuthenticated: true, Privileged: true}

	// First navigation after login is let through and consumes the marker.
	if !m.Navigate(&st) {
		t.Fatal("The navigation right after login must survive")
	}
	if st.JustAuthenticated {
		t.Error("The one-shot marker must be consumed")
	}

	// The next one clears everything, privilege included.
	if m.Navigate(&st) {
		t.Fatal("A later navigation must clear the session")
	}
	if st.Stage != Anonymous || st.Privileged || st.UserID != "" {
		t.Errorf("Session should be fully cleared: %+v", st)
	}
}

func TestNavigate_BelowAuthenticatedUntouched(t *testing.T) {
	m := newMachine(t)
	st := State{Stage: PasswordVerified, UserID: "alice"}

	if !m.Navigate(&st) {
		t.Fatal("Navigation must not clear a session below Authenticated")
	}
	if st.Stage != PasswordVerified {
		t.Errorf("Stage changed: %v", st.Stage)
	}
}

func TestNavigate_DisabledByConfig(t *testing.T) {
	m := newMachine(t)
	m.InvalidateOnNav = false
	st := State{Stage: Authenticated, UserID: "alice"}

	for i := 0; i < 3; i++ {
		if !m.Navigate(&st) {
			t.Fatal("With invalidation off the session must persist")
		}
	}
	if st.Stage != Authenticated {
		t.Errorf("Stage changed: %v", st.Stage)
	}
}

func TestLogout(t *testing.T) {
	m := newMachine(t)
	st := State{Stage: Authenticated, UserID: "alice", Privileged: true}
	m.Logout(&st)
	if st != (State{}) {
		t.Errorf("Logout must clear everything: %+v", st)
	}
}
