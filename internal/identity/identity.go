package identity

// User is an authenticated journal user. The core only ever consumes the
// id; the email is display-only.
type User struct {
	ID    string
	Email string
}

// Provider supplies the current user and an authentication-state stream.
// How users authenticate is the provider's business.
type Provider interface {
	// Current returns the signed-in user, or nil.
	Current() *User

	// OnStateChange registers a callback invoked with the signed-in user
	// (nil on sign-out). The callback fires immediately with the current
	// state.
	OnStateChange(fn func(*User))
}

// Static is a Provider with a fixed, pre-authenticated user, typically
// sourced from configuration for single-user deployments.
type Static struct {
	user *User
}

// NewStatic creates a provider for the given user id.
func NewStatic(id, email string) *Static {
	if id == "" {
		return &Static{}
	}
	return &Static{user: &User{ID: id, Email: email}}
}

func (s *Static) Current() *User { return s.user }

func (s *Static) OnStateChange(fn func(*User)) { fn(s.user) }
