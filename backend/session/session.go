// Package session implements the login state machine. The state is an
// explicit value owned by the caller (in practice decoded from the session
// cookie), never ambient: every transition takes the state by pointer and
// rewrites it.
package session

import (
	"errors"
	"time"

	"annuaire/backend/models"
	"annuaire/backend/store"
	"annuaire/backend/totp"
)

// Stage of the login flow. Only a successful check moves it forward.
type Stage int

const (
	Anonymous Stage = iota
	PasswordVerified
	Authenticated
)

// Internal failure reasons. Handlers log them but answer the browser with
// one generic message so a caller cannot probe which check failed.
var (
	ErrUnknownUser    = errors.New("session: unknown user")
	ErrWrongPassword  = errors.New("session: wrong password")
	ErrInvalidCode    = errors.New("session: invalid code")
	ErrNoPendingLogin = errors.New("session: no login awaiting a second factor")
)

// State is the per-session authentication state.
type State struct {
	Stage  Stage
	UserID string

	// Privileged is sticky: set by a successful unlock code and kept until
	// the session is cleared. It is independent of Stage and may be set
	// while still Anonymous.
	Privileged bool

	// JustAuthenticated marks the navigation immediately following a
	// completed login, which the auto-invalidation rule lets through.
	JustAuthenticated bool
}

// Machine binds the transitions to their collaborators. The credential file
// and the unlock secret are re-read on every transition.
type Machine struct {
	Users *store.Users

	// UnlockSecret returns the deployment-wide unlock secret, "" when
	// escalation is disabled.
	UnlockSecret func() (string, error)

	// InvalidateOnNav clears an authenticated session on any read-only
	// navigation except the one straight after login. Deployments that
	// prefer long-lived sessions turn it off.
	InvalidateOnNav bool

	// Now is the clock used for code verification, nil means time.Now.
	Now func() time.Time
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// SubmitPassword runs the first factor. The stage always restarts from
// Anonymous; on a match it advances to PasswordVerified, or straight to
// Authenticated when the account has no second factor. A successful match
// resets the whole state, dropping any privilege held so far.
func (m *Machine) SubmitPassword(st *State, id, password string) error {
	st.Stage = Anonymous
	st.UserID = ""
	st.JustAuthenticated = false

	u, err := m.Users.FindByID(id)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUnknownUser
	}
	if u.Password != password {
		return ErrWrongPassword
	}

	*st = State{Stage: PasswordVerified, UserID: u.ID}
	if !u.SecondFactorEnabled() {
		st.Stage = Authenticated
		st.JustAuthenticated = true
	}
	return nil
}

// SubmitSecondFactor runs the second factor for the pending login. On
// success the state is rebuilt from scratch, as a fresh authenticated
// session. A verification error counts as a failed code.
func (m *Machine) SubmitSecondFactor(st *State, code string) error {
	if st.Stage != PasswordVerified || st.UserID == "" {
		return ErrNoPendingLogin
	}
	u, err := m.Users.FindByID(st.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		*st = State{}
		return ErrUnknownUser
	}
	if u.SecondFactorEnabled() {
		ok, err := totp.Verify(u.TOTPSecret, code, totp.Window, m.now())
		if err != nil || !ok {
			return ErrInvalidCode
		}
	}
	*st = State{Stage: Authenticated, UserID: u.ID, JustAuthenticated: true}
	return nil
}

// RequestPrivilege checks a candidate against the unlock secret and, on a
// match, sets the sticky privilege flag whatever the current stage. Any
// verification problem (including a malformed secret) is absorbed as a
// plain no-match so the caller falls through to a normal search.
func (m *Machine) RequestPrivilege(st *State, code string) bool {
	if code == "" {
		return false
	}
	secret, err := m.UnlockSecret()
	if err != nil || secret == "" {
		return false
	}
	ok, err := totp.Verify(secret, code, totp.Window, m.now())
	if err != nil || !ok {
		return false
	}
	st.Privileged = true
	return true
}

// Navigate applies the auto-invalidation rule for a read-only page view.
// The single navigation after a completed login is let through by consuming
// the one-shot marker; any later one clears the session, forcing a fresh
// login on reload or back-navigation. Sessions below Authenticated are left
// alone. Returns true when the session survived.
func (m *Machine) Navigate(st *State) bool {
	if st.Stage != Authenticated {
		return true
	}
	if st.JustAuthenticated {
		st.JustAuthenticated = false
		return true
	}
	if !m.InvalidateOnNav {
		return true
	}
	*st = State{}
	return false
}

// Logout clears the session unconditionally.
func (m *Machine) Logout(st *State) {
	*st = State{}
}

// CurrentUser resolves the bound account, nil when none.
func (m *Machine) CurrentUser(st *State) (*models.User, error) {
	if st.UserID == "" {
		return nil, nil
	}
	return m.Users.FindByID(st.UserID)
}
