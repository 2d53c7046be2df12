package session

// Snapshot is an immutable view of the session handed to readers. Route
// guards and views work from snapshots; only the Manager mutates the
// underlying state.
type Snapshot struct {
	User          *User
	Tokens        TokenPair
	Authenticated bool
	Loading       bool
	Error         string
	Generation    uint64
}

// HasRole reports whether the snapshot's user holds one of the given
// roles. An empty role list means any authenticated user qualifies.
func (s Snapshot) HasRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	if s.User == nil {
		return false
	}
	for _, role := range roles {
		if s.User.Role == role {
			return true
		}
	}
	return false
}

// sessionState is the Manager-owned mutable state. The generation counter
// increments whenever the session identity changes (login, logout, clear)
// so in-flight work targeting an older session can be discarded.
type sessionState struct {
	user       *User
	tokens     TokenPair
	loading    bool
	err        string
	generation uint64
}

// authenticated holds the invariant: a session is authenticated iff a
// user and a usable access token are both present.
func (s *sessionState) authenticated() bool {
	return s.user != nil && s.tokens.HasAccess()
}

func (s *sessionState) snapshot() Snapshot {
	return Snapshot{
		User:          s.user.clone(),
		Tokens:        s.tokens,
		Authenticated: s.authenticated(),
		Loading:       s.loading,
		Error:         s.err,
		Generation:    s.generation,
	}
}

// clear wipes identity and tokens together; they are never destroyed
// independently.
func (s *sessionState) clear() {
	s.user = nil
	s.tokens = TokenPair{}
	s.err = ""
	s.generation++
}
