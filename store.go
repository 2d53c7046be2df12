package session

// Persisted keys. The cookie layout predates this library; the key names
// are part of the persisted contract and must not change.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// sentinel values produced by older clients that serialized JS absence
// literals instead of removing the key
func isAbsent(v string) bool {
	switch v {
	case "", "undefined", "null":
		return true
	default:
		return false
	}
}

// Store persists session values write-through across a primary and a
// secondary backend so either one surviving a restart is enough to
// restore a session.
type Store struct {
	primary   Backend
	secondary Backend
	logger    Logger
}

// NewStore returns a Store over the given backends. The secondary backend
// is optional.
func NewStore(primary Backend, secondary Backend) *Store {
	return &Store{
		primary:   primary,
		secondary: secondary,
		logger:    defLogger{},
	}
}

// WithLogger replaces the store logger
func (s *Store) WithLogger(logger Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Get reads the primary backend first and falls back to the secondary.
// Sentinel and empty values read from either backend are absent.
func (s *Store) Get(key string) string {
	if v, ok := s.read(s.primary, key); ok {
		return v
	}
	if v, ok := s.read(s.secondary, key); ok {
		return v
	}
	return ""
}

// Lookup is Get with an explicit presence flag
func (s *Store) Lookup(key string) (string, bool) {
	v := s.Get(key)
	return v, v != ""
}

// Set writes the value to both backends before returning. Writing a
// sentinel value is equivalent to Remove.
func (s *Store) Set(key, value string) error {
	if isAbsent(value) {
		return s.Remove(key)
	}

	err := s.write(s.primary, key, value)
	if serr := s.write(s.secondary, key, value); err == nil {
		err = serr
	}
	return err
}

// Remove deletes the key from both backends; removing a missing key is a
// no-op.
func (s *Store) Remove(key string) error {
	err := s.primary.Remove(key)
	if s.secondary != nil {
		if serr := s.secondary.Remove(key); err == nil {
			err = serr
		}
	}
	return err
}

// Clear removes every persisted session key
func (s *Store) Clear() error {
	var err error
	for _, key := range []string{KeyToken, KeyRefreshToken, KeyUser} {
		if rerr := s.Remove(key); err == nil {
			err = rerr
		}
	}
	return err
}

func (s *Store) read(b Backend, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, err := b.Get(key)
	if err != nil {
		s.logger.Warn("store read failed for %q: %v", key, err)
		return "", false
	}
	if isAbsent(v) {
		return "", false
	}
	return v, true
}

func (s *Store) write(b Backend, key, value string) error {
	if b == nil {
		return nil
	}
	if err := b.Set(key, value); err != nil {
		s.logger.Warn("store write failed for %q: %v", key, err)
		return err
	}
	return nil
}
