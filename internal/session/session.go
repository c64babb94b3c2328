// Package session tracks the connection to one provider and holds the
// athlete's classified activities for that provider.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lildude/fitdash/internal/activity"
	"github.com/lildude/fitdash/internal/client"
	"github.com/lildude/fitdash/internal/token"
	"github.com/sirupsen/logrus"
)

var (
	ErrAuthorizationDenied = errors.New("authorization was denied")
	ErrStateMismatch       = errors.New("oauth state does not match")
	ErrNotConnecting       = errors.New("no authorization in progress")
	ErrAlreadyConnected    = errors.New("already connected")
	ErrTokenExpired        = errors.New("token expired")
	ErrActivityNotFound    = errors.New("activity not found")
)

// Provider is the capability set a fitness platform client offers.
type Provider interface {
	Name() string
	TokenKey() string
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*token.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*token.Token, error)
	ListActivities(ctx context.Context, accessToken string, opts activity.ListOptions) ([]activity.Raw, error)
}

// Detailer is implemented by providers that serve a single activity with
// fields the list endpoint leaves out.
type Detailer interface {
	GetActivity(ctx context.Context, accessToken string, id int64) (*activity.Raw, error)
}

// State is the connection state of a session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "disconnected":
		*s = Disconnected
	case "connecting":
		*s = Connecting
	case "connected":
		*s = Connected
	default:
		return fmt.Errorf("unknown session state %q", b)
	}
	return nil
}

// CallbackParams are the query parameters of an OAuth redirect.
type CallbackParams struct {
	State string
	Code  string
	Error string
}

// Session is the connection state machine for a single provider. It is
// safe for concurrent use.
type Session struct {
	provider Provider
	tokens   *token.Store
	log      logrus.FieldLogger
	now      func() time.Time
	newState func() (string, error)

	mu         sync.Mutex
	state      State
	pending    string
	tok        *token.Token
	activities []activity.Activity
	generation uint64
	inflight   int
	fetchedAt  time.Time
	lastErr    error
}

func New(p Provider, tokens *token.Store, log logrus.FieldLogger) *Session {
	return &Session{
		provider: p,
		tokens:   tokens,
		log:      log.WithField("provider", p.Name()),
		now:      time.Now,
		newState: generateState,
	}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Session) Name() string { return s.provider.Name() }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init restores the session from the token store. A valid stored token
// connects the session and triggers an initial fetch; an expired one is
// removed.
func (s *Session) Init(ctx context.Context) error {
	tok, err := s.tokens.Load(ctx, s.provider.TokenKey())
	if errors.Is(err, token.ErrNoToken) {
		s.log.Info("no stored token")
		return nil
	}
	if err != nil {
		return err
	}

	if !tok.ValidAt(s.now()) {
		s.log.Info("stored token expired")
		return s.tokens.Clear(ctx, s.provider.TokenKey())
	}

	s.mu.Lock()
	s.generation++
	s.state = Connected
	s.tok = tok
	s.mu.Unlock()
	s.log.Info("restored connection")

	s.fetchLogged(ctx)
	return nil
}

// Connect starts an authorization and returns the provider consent URL.
func (s *Session) Connect() (string, error) {
	state, err := s.newState()
	if err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Connected {
		return "", ErrAlreadyConnected
	}
	s.state = Connecting
	s.pending = state
	s.log.WithField("state", s.state).Info("authorization started")
	return s.provider.AuthorizationURL(state), nil
}

// Callback completes an authorization. On success the token is persisted,
// the session is connected and activities are fetched. Any failure leaves
// the session disconnected, except a callback with no authorization in
// progress which changes nothing.
func (s *Session) Callback(ctx context.Context, p CallbackParams) error {
	s.mu.Lock()
	if s.state != Connecting {
		s.mu.Unlock()
		return ErrNotConnecting
	}
	pending := s.pending
	s.pending = ""

	// A failed callback also invalidates any exchange still in flight for
	// an earlier callback.
	switch {
	case p.Error != "":
		s.abandon()
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAuthorizationDenied, p.Error)
	case p.Code == "":
		s.abandon()
		s.mu.Unlock()
		return fmt.Errorf("%w: no authorization code", ErrAuthorizationDenied)
	case p.State != pending:
		s.abandon()
		s.mu.Unlock()
		return ErrStateMismatch
	}
	gen := s.generation
	s.mu.Unlock()

	tok, err := s.provider.ExchangeCode(ctx, p.Code)
	if err == nil {
		err = s.tokens.Save(ctx, s.provider.TokenKey(), tok)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		if err == nil {
			err = s.tokens.Clear(ctx, s.provider.TokenKey())
		}
		return errors.Join(ErrNotConnecting, err)
	}
	if err != nil {
		s.state = Disconnected
		s.mu.Unlock()
		s.log.WithError(err).Error("authorization failed")
		return err
	}
	s.generation++
	s.state = Connected
	s.tok = tok
	s.activities = nil
	s.mu.Unlock()
	s.log.Info("connected")

	s.fetchLogged(ctx)
	return nil
}

// Disconnect clears the token and the held activities. Fetches still in
// flight are discarded when they complete.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
	s.log.Info("disconnected")

	return s.tokens.Clear(ctx, s.provider.TokenKey())
}

// abandon must be called with mu held.
func (s *Session) abandon() {
	s.generation++
	s.state = Disconnected
}

// reset must be called with mu held.
func (s *Session) reset() {
	s.generation++
	s.state = Disconnected
	s.pending = ""
	s.tok = nil
	s.activities = nil
	s.lastErr = nil
	s.fetchedAt = time.Time{}
}

// RefreshActivities replaces the held activities with a fresh fetch. It is
// a no-op unless the session is connected.
func (s *Session) RefreshActivities(ctx context.Context) error {
	return s.fetch(ctx, nil)
}

// RefreshCategory fetches activities and replaces only those of category
// c, keeping the others already held.
func (s *Session) RefreshCategory(ctx context.Context, c activity.Category) error {
	return s.fetch(ctx, &c)
}

func (s *Session) fetchLogged(ctx context.Context) {
	if err := s.RefreshActivities(ctx); err != nil {
		s.log.WithError(err).Error("fetching activities")
	}
}

func (s *Session) fetch(ctx context.Context, only *activity.Category) error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return nil
	}
	gen, tok := s.generation, s.tok
	s.inflight++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	tok, err := s.freshToken(ctx, gen, tok)
	if err != nil {
		return s.fail(ctx, gen, err, errors.Is(err, ErrTokenExpired) || rejected(err))
	}

	raws, err := s.provider.ListActivities(ctx, tok.AccessToken, activity.ListOptions{})
	if err != nil {
		return s.fail(ctx, gen, err, unauthorized(err))
	}

	acts := activity.ClassifyAll(raws)
	if only != nil {
		acts = activity.Filter(acts, *only)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state != Connected {
		s.log.WithField("count", len(acts)).Warn("discarding activities fetched before disconnect")
		return nil
	}

	if only != nil {
		acts = replaceCategory(s.activities, acts, *only)
	}
	s.activities = acts
	s.fetchedAt = s.now()
	s.lastErr = nil
	s.log.WithField("count", len(acts)).Info("activities updated")
	return nil
}

// freshToken refreshes tok when it has expired during the session.
func (s *Session) freshToken(ctx context.Context, gen uint64, tok *token.Token) (*token.Token, error) {
	if tok.ValidAt(s.now()) {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, ErrTokenExpired
	}

	s.log.Info("refreshing expired token")
	fresh, err := s.provider.RefreshToken(ctx, tok.RefreshToken)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	current := gen == s.generation
	if current {
		s.tok = fresh
	}
	s.mu.Unlock()

	if !current {
		return fresh, nil
	}
	if err := s.tokens.Save(ctx, s.provider.TokenKey(), fresh); err != nil {
		return nil, err
	}

	// A disconnect during the save has already cleared the key.
	s.mu.Lock()
	current = gen == s.generation
	s.mu.Unlock()
	if !current {
		if err := s.dropIfStored(ctx, fresh); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// dropIfStored clears the provider token if it is still tok, leaving a
// token saved by a later connection alone.
func (s *Session) dropIfStored(ctx context.Context, tok *token.Token) error {
	stored, err := s.tokens.Load(ctx, s.provider.TokenKey())
	if errors.Is(err, token.ErrNoToken) {
		return nil
	}
	if err != nil {
		return err
	}
	if stored.AccessToken != tok.AccessToken {
		return nil
	}
	s.log.Info("dropping token refreshed after disconnect")
	return s.tokens.Clear(ctx, s.provider.TokenKey())
}

func unauthorized(err error) bool {
	var re *client.RequestError
	return errors.As(err, &re) && re.Unauthorized()
}

// rejected reports a 4xx answer from the provider.
func rejected(err error) bool {
	var re *client.RequestError
	return errors.As(err, &re) && re.StatusCode >= 400 && re.StatusCode < 500
}

// fail records a fetch error. Revoked credentials disconnect the session.
func (s *Session) fail(ctx context.Context, gen uint64, err error, revoked bool) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return err
	}
	if !revoked {
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	s.reset()
	s.mu.Unlock()

	s.log.WithError(err).Warn("credentials rejected, disconnecting")
	if cerr := s.tokens.Clear(ctx, s.provider.TokenKey()); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

func replaceCategory(held, fetched []activity.Activity, c activity.Category) []activity.Activity {
	out := make([]activity.Activity, 0, len(held)+len(fetched))
	for _, a := range held {
		if a.Category != c {
			out = append(out, a)
		}
	}
	out = append(out, fetched...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out
}

// Activities returns a copy of the held activities, most recent first.
func (s *Session) Activities() []activity.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]activity.Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// Activity returns the held activity with the given id. A summary without
// heart rate data is replaced by the provider's detailed record when the
// provider is a Detailer. A failed detail fetch returns the summary.
func (s *Session) Activity(ctx context.Context, id int64) (activity.Activity, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return activity.Activity{}, ErrActivityNotFound
	}
	held := s.activities[i]
	gen, tok := s.generation, s.tok
	d, ok := s.provider.(Detailer)
	if !ok || held.HasHeartrate() || s.state != Connected {
		s.mu.Unlock()
		return held, nil
	}
	s.mu.Unlock()

	tok, err := s.freshToken(ctx, gen, tok)
	if err != nil {
		s.log.WithError(err).WithField("activity", id).Warn("fetching activity details")
		return held, nil
	}
	r, err := d.GetActivity(ctx, tok.AccessToken, id)
	if err != nil {
		s.log.WithError(err).WithField("activity", id).Warn("fetching activity details")
		return held, nil
	}
	detailed := activity.Classify(*r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		if i := s.indexOf(id); i >= 0 {
			s.activities[i] = detailed
		}
	}
	return detailed, nil
}

// indexOf must be called with mu held.
func (s *Session) indexOf(id int64) int {
	for i := range s.activities {
		if s.activities[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Provider   string    `json:"provider"`
	State      State     `json:"state"`
	Loading    bool      `json:"loading"`
	Activities int       `json:"activities"`
	FetchedAt  time.Time `json:"fetchedAt,omitzero"`
	LastError  string    `json:"lastError,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Provider:   s.provider.Name(),
		State:      s.state,
		Loading:    s.inflight > 0,
		Activities: len(s.activities),
		FetchedAt:  s.fetchedAt,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
