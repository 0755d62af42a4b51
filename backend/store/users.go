// Package store holds the flat-file stores: the credential file, the
// variables file and the unlock secret. Every call re-reads its file so an
// admin edit is visible on the next request without a restart.
package store

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"annuaire/backend/models"
	"annuaire/backend/totp"
)

var (
	ErrDuplicateID = errors.New("store: user id already exists")
	ErrNotFound    = errors.New("store: user not found")
	ErrInvalidRole = errors.New("store: invalid role")
	ErrEmptyID     = errors.New("store: empty user id")
)

// Users reads and rewrites the credential file. One record per line,
// id:password:secret[:role]. Lines that do not parse are carried through
// every rewrite verbatim rather than silently dropped.
type Users struct {
	Path string
}

func NewUsers(path string) *Users {
	return &Users{Path: path}
}

// userLine is one line of the file: either a parsed record or raw text
// (blank, comment, too few fields) preserved as-is.
type userLine struct {
	raw  string
	user *models.User
}

func parseLine(line string) userLine {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return userLine{raw: line}
	}
	parts := strings.SplitN(trimmed, ":", 4)
	if len(parts) < 3 {
		return userLine{raw: line}
	}
	id := strings.TrimSpace(parts[0])
	if id == "" {
		return userLine{raw: line}
	}
	role := models.RoleUser
	if len(parts) == 4 {
		if r := strings.ToLower(strings.TrimSpace(parts[3])); models.ValidRole(r) {
			role = r
		}
	}
	return userLine{user: &models.User{
		ID:         id,
		Password:   parts[1],
		TOTPSecret: parts[2],
		Role:       role,
	}}
}

func formatLine(u *models.User) string {
	return u.ID + ":" + u.Password + ":" + u.TOTPSecret + ":" + u.Role
}

// normalizeSecret returns the canonical form of a stored secret: a valid
// base32 string is kept as-is, anything else (empty, the disabled token in
// any case, undecodable text) becomes models.SecretDisabled.
func normalizeSecret(secret string) string {
	s := strings.TrimSpace(secret)
	if s == "" || strings.EqualFold(s, models.SecretDisabled) {
		return models.SecretDisabled
	}
	if !totp.ValidSecret(s) {
		return models.SecretDisabled
	}
	return s
}

// readAll parses the whole file and self-heals malformed secrets. When a
// secret was rewritten the file is persisted atomically; a second load finds
// nothing left to fix, so the pass is idempotent. A missing file is created
// empty.
func (s *Users) readAll() ([]userLine, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeFileAtomic(s.Path, nil); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []userLine
	healed := false
	for _, text := range splitLines(string(data)) {
		ln := parseLine(text)
		if ln.user != nil {
			if norm := normalizeSecret(ln.user.TOTPSecret); norm != ln.user.TOTPSecret {
				slog.Info("normalized malformed second-factor secret",
					"source", "store", "user_id", ln.user.ID)
				ln.user.TOTPSecret = norm
				healed = true
			}
		}
		lines = append(lines, ln)
	}
	if healed {
		if err := s.writeAll(lines); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func splitLines(data string) []string {
	if data == "" {
		return nil
	}
	data = strings.TrimSuffix(data, "\n")
	return strings.Split(data, "\n")
}

func (s *Users) writeAll(lines []userLine) error {
	var b strings.Builder
	for _, ln := range lines {
		if ln.user != nil {
			b.WriteString(formatLine(ln.user))
		} else {
			b.WriteString(ln.raw)
		}
		b.WriteByte('\n')
	}
	return writeFileAtomic(s.Path, []byte(b.String()))
}

// Load returns every parsed account in file order.
func (s *Users) Load() ([]models.User, error) {
	lines, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var users []models.User
	for _, ln := range lines {
		if ln.user != nil {
			users = append(users, *ln.user)
		}
	}
	return users, nil
}

// FindByID returns the account with the given id, or nil when absent.
func (s *Users) FindByID(id string) (*models.User, error) {
	users, err := s.Load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

// VerifyPassword compares the stored password byte-for-byte. No hashing, no
// normalization: the file stores passwords in clear, which is a known
// weakness kept for compatibility with the existing deployment.
func (s *Users) VerifyPassword(id, candidate string) (bool, error) {
	u, err := s.FindByID(id)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, nil
	}
	return u.Password == candidate, nil
}

// Add appends a new account. The secret is normalized the same way loading
// does; an empty role defaults to user.
func (s *Users) Add(id, password, secret, role string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return ErrInvalidRole
	}
	lines, err := s.readAll()
	if err != nil {
		return err
	}
	for _, ln := range lines {
		if ln.user != nil && ln.user.ID == id {
			return ErrDuplicateID
		}
	}
	lines = append(lines, userLine{user: &models.User{
		ID:         id,
		Password:   password,
		TOTPSecret: normalizeSecret(secret),
		Role:       role,
	}})
	return s.writeAll(lines)
}

// Remove deletes the account with the given id.
func (s *Users) Remove(id string) error {
	lines, err := s.readAll()
	if err != nil {
		return err
	}
	kept := lines[:0]
	found := false
	for _, ln := range lines {
		if ln.user != nil && ln.user.ID == id {
			found = true
			continue
		}
		kept = append(kept, ln)
	}
	if !found {
		return ErrNotFound
	}
	return s.writeAll(kept)
}

// SetRole changes an account's role.
func (s *Users) SetRole(id, role string) error {
	if !models.ValidRole(role) {
		return ErrInvalidRole
	}
	lines, err := s.readAll()
	if err != nil {
		return err
	}
	found := false
	for _, ln := range lines {
		if ln.user != nil && ln.user.ID == id {
			ln.user.Role = role
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	return s.writeAll(lines)
}
