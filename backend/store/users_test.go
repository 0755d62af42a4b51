package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"annuaire/backend/models"
)

func writeUsersFile(t *testing.T, content string) *Users {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewUsers(path)
}

func TestLoad_ParsesRecords(t *testing.T) {
	s := writeUsersFile(t, "alice:pw1:JBSWY3DPEHPK3PXP:admin\nbob:pw2:none\n")

	users, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	if users[0].ID != "alice" || users[0].Role != models.RoleAdmin {
		t.Errorf("Unexpected first user: %+v", users[0])
	}
	if !users[0].SecondFactorEnabled() {
		t.Error("alice should have a second factor")
	}
	if users[1].Role != models.RoleUser {
		t.Errorf("Omitted role should default to user, got %q", users[1].Role)
	}
	if users[1].SecondFactorEnabled() {
		t.Error("bob's second factor should be disabled")
	}
}

func TestLoad_PreservesUnparsableLines(t *testing.T) {
	content := "# staff accounts\n\nbroken-line\nalice:pw:none:user\n"
	s := writeUsersFile(t, content)

	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}

	// Force a rewrite and check the raw lines survived.
	if err := s.Add("bob", "pw2", "", ""); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatal(err)
	}
	want := "# staff accounts\n\nbroken-line\nalice:pw:none:user\nbob:pw2:none:user\n"
	if string(data) != want {
		t.Errorf("File after rewrite:\n%q\nwant:\n%q", data, want)
	}
}

func TestLoad_SelfHealsInvalidSecret(t *testing.T) {
	s := writeUsersFile(t, "alice:pw:pas du tout base32:user\nbob:pw::admin\n")

	users, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range users {
		if u.TOTPSecret != models.SecretDisabled {
			t.Errorf("Secret for %s should be normalized to %q, got %q", u.ID, models.SecretDisabled, u.TOTPSecret)
		}
	}

	after, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatal(err)
	}

	// Idempotent: a second load finds nothing to fix and rewrites nothing.
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	again, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(again) {
		t.Errorf("Second load changed the file:\n%q\nvs\n%q", after, again)
	}
	want := "alice:pw:none:user\nbob:pw:none:admin\n"
	if string(after) != want {
		t.Errorf("Healed file is %q, want %q", after, want)
	}
}

func TestLoad_ValidSecretUntouched(t *testing.T) {
	content := "alice:pw:JBSWY3DPEHPK3PXP:user\n"
	s := writeUsersFile(t, content)

	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("A valid secret should not trigger a rewrite, file is now %q", data)
	}
}

func TestLoad_MissingFileCreatedEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	s := NewUsers(path)

	users, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Errorf("Expected no users, got %d", len(users))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Missing file should be created: %v", err)
	}
}

func TestVerifyPassword_ExactBytes(t *testing.T) {
	s := writeUsersFile(t, "alice:Pa ss:none:user\n")

	cases := []struct {
		id, pw string
		want   bool
	}{
		{"alice", "Pa ss", true},
		{"alice", "pa ss", false},  // no case folding
		{"alice", "Pa ss ", false}, // no trimming
		{"nobody", "Pa ss", false},
	}
	for _, c := range cases {
		ok, err := s.VerifyPassword(c.id, c.pw)
		if err != nil {
			t.Fatal(err)
		}
		if ok != c.want {
			t.Errorf("VerifyPassword(%q, %q) = %v, want %v", c.id, c.pw, ok, c.want)
		}
	}
}

func TestAdd_DuplicateLeavesFileUnchanged(t *testing.T) {
	s := writeUsersFile(t, "alice:pw:none:user\n")
	before, _ := os.ReadFile(s.Path)

	err := s.Add("alice", "other", "", "")
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Expected ErrDuplicateID, got %v", err)
	}

	after, _ := os.ReadFile(s.Path)
	if string(before) != string(after) {
		t.Error("A rejected add must not modify the store")
	}
}

func TestAdd_Validation(t *testing.T) {
	s := writeUsersFile(t, "")

	if err := s.Add("  ", "pw", "", ""); !errors.Is(err, ErrEmptyID) {
		t.Errorf("Blank id: expected ErrEmptyID, got %v", err)
	}
	if err := s.Add("carol", "pw", "", "superuser"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Bad role: expected ErrInvalidRole, got %v", err)
	}
}

func TestAdd_NormalizesSecret(t *testing.T) {
	s := writeUsersFile(t, "")
	if err := s.Add("carol", "pw", "not base32!", models.RoleUser); err != nil {
		t.Fatal(err)
	}
	u, err := s.FindByID("carol")
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.TOTPSecret != models.SecretDisabled {
		t.Errorf("Invalid secret on add should be stored disabled, got %+v", u)
	}
}

func TestRemove(t *testing.T) {
	s := writeUsersFile(t, "alice:pw:none:user\nbob:pw:none:user\n")

	if err := s.Remove("bob"); err != nil {
		t.Fatal(err)
	}
	if u, _ := s.FindByID("bob"); u != nil {
		t.Error("bob should be gone")
	}
	if err := s.Remove("bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetRole(t *testing.T) {
	s := writeUsersFile(t, "alice:pw:none:user\n")

	if err := s.SetRole("alice", models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	u, err := s.FindByID("alice")
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || !u.IsAdmin() {
		t.Errorf("alice should be admin, got %+v", u)
	}

	if err := s.SetRole("nobody", models.RoleUser); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.SetRole("alice", "root"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
}
