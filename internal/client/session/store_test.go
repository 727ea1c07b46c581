package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/civicdesk/internal/client/client"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/client/repositories/credentials"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAuth struct {
	loginRes  models.AuthResult
	loginErr  error
	lastUser  string
	lastPass  string
	registers []models.RegisterRequest
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (models.AuthResult, error) {
	f.lastUser, f.lastPass = username, password
	return f.loginRes, f.loginErr
}

func (f *fakeAuth) Register(_ context.Context, req models.RegisterRequest) error {
	f.registers = append(f.registers, req)
	return nil
}

type navRecorder struct{ views []View }

func (n *navRecorder) Navigate(v View) { n.views = append(n.views, v) }

func newRepo(t *testing.T) credentials.Repository {
	t.Helper()
	repos, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })
	return repos.Credentials
}

func newStore(t *testing.T, repo credentials.Repository, auth *fakeAuth) (*Store, *navRecorder) {
	t.Helper()
	nav := &navRecorder{}
	s := NewStore(repo, auth,
		WithNavigator(nav),
		WithClock(func() time.Time { return now }),
		WithBcryptCost(bcrypt.MinCost),
	)
	return s, nav
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func TestInitialize(t *testing.T) {
	live := signedToken(t, jwt.MapClaims{"sub": "alice", "exp": now.Add(time.Hour).Unix()})
	expired := signedToken(t, jwt.MapClaims{"sub": "alice", "exp": now.Add(-time.Minute).Unix()})
	noExp := signedToken(t, jwt.MapClaims{"sub": "alice"})
	legacy := models.LegacyUser{ID: "3", Username: "bob", Role: "admin"}

	tests := []struct {
		name   string
		token  string
		legacy *models.LegacyUser
		want   *models.Session
	}{
		{name: "empty storage"},
		{
			name:  "live token",
			token: live,
			want: &models.Session{
				Scheme: models.SchemeToken, Username: "alice", Token: live,
				Authorities: []string{"ROLE_USER"},
			},
		},
		{name: "expired token", token: expired},
		{name: "token without exp", token: noExp},
		{name: "garbage token", token: "not-a-token"},
		{name: "two segments", token: "abc.def"},
		{
			name:   "legacy record",
			legacy: &legacy,
			want:   &models.Session{Scheme: models.SchemeLegacy, Username: "bob", UserID: "3", Role: "admin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			if tt.legacy != nil {
				require.NoError(t, repo.SaveLoggedInUser(ctx, *tt.legacy))
			}
			if tt.token != "" {
				require.NoError(t, repo.SaveToken(ctx, credentials.TokenCredentials{
					Token: tt.token, Username: "alice", Authorities: []string{"ROLE_USER"},
				}))
			}

			s, nav := newStore(t, repo, &fakeAuth{})
			s.Initialize(ctx)

			assert.Equal(t, tt.want, s.Current())
			assert.Empty(t, nav.views)
		})
	}
}

func TestInitialize_TokenWinsOverLegacy(t *testing.T) {
	repo := &stubRepo{
		token:    credentials.TokenCredentials{Token: signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), Username: "alice"},
		hasToken: true,
		legacy:   models.LegacyUser{Username: "bob"},
		hasUser:  true,
	}
	s, _ := newStore(t, nil, &fakeAuth{})
	s.creds = repo
	s.Initialize(context.Background())

	require.NotNil(t, s.Current())
	assert.Equal(t, models.SchemeToken, s.Current().Scheme)
	assert.Equal(t, "alice", s.Current().Username)
}

func TestInitialize_StorageFailureIsAnonymous(t *testing.T) {
	s, _ := newStore(t, nil, &fakeAuth{})
	s.creds = &stubRepo{err: errors.New("disk gone")}
	s.Initialize(context.Background())
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Token())
}

func TestLogin_TokenScheme(t *testing.T) {
	tests := []struct {
		name        string
		authorities models.Authorities
		wantView    View
		wantAdmin   bool
	}{
		{name: "admin", authorities: models.Authorities{"ROLE_USER", "ROLE_ADMIN"}, wantView: ViewAdmin, wantAdmin: true},
		{name: "user", authorities: models.Authorities{"ROLE_USER"}, wantView: ViewUser},
		{name: "no authorities", wantView: ViewUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			auth := &fakeAuth{loginRes: models.AuthResult{Token: "jwt", Username: "alice", Authorities: tt.authorities}}
			s, nav := newStore(t, repo, auth)
			ctx := context.Background()

			require.NoError(t, s.Login(ctx, "alice", "pw"))
			assert.Equal(t, "alice", auth.lastUser)
			assert.Equal(t, "pw", auth.lastPass)
			assert.Equal(t, []View{tt.wantView}, nav.views)
			assert.Equal(t, tt.wantAdmin, s.Current().IsAdmin())
			assert.Equal(t, "jwt", s.Token())

			stored, ok, err := repo.LoadToken(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "jwt", stored.Token)
			assert.Equal(t, "alice", stored.Username)
		})
	}
}

func TestLogin_BackendErrorIsLoud(t *testing.T) {
	boom := errors.New("bad credentials")
	s, nav := newStore(t, newRepo(t), &fakeAuth{loginErr: boom})

	err := s.Login(context.Background(), "alice", "nope")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, s.Current())
	assert.Empty(t, nav.views)
}

func TestAccept_RejectsMissingToken(t *testing.T) {
	s, nav := newStore(t, newRepo(t), &fakeAuth{})
	require.ErrorIs(t, s.Accept(context.Background(), models.AuthResult{Username: "alice"}), ErrNoToken)
	assert.Nil(t, s.Current())
	assert.Empty(t, nav.views)
}

func TestLoginLegacy(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	users := []models.LegacyUser{
		{ID: "1", Username: "carol", Password: "plain-pw", Role: "user"},
		{ID: "2", Username: "dave", PasswordHash: string(hash), Role: "admin"},
		{ID: "3", Username: "erin", Role: "user"},
	}

	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
		wantView View
	}{
		{name: "plain password", username: "carol", password: "plain-pw", wantOK: true, wantView: ViewUser},
		{name: "bcrypt password", username: "dave", password: "hashed-pw", wantOK: true, wantView: ViewAdmin},
		{name: "wrong password", username: "carol", password: "nope"},
		{name: "unknown user", username: "zed", password: "plain-pw"},
		{name: "username is case sensitive", username: "Carol", password: "plain-pw"},
		{name: "record without password", username: "erin", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			require.NoError(t, repo.SaveUsers(ctx, users))
			s, nav := newStore(t, repo, &fakeAuth{})

			ok, err := s.LoginLegacy(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)

			if !tt.wantOK {
				assert.Nil(t, s.Current())
				assert.Empty(t, nav.views)
				_, stored, err := repo.LoadLoggedInUser(ctx)
				require.NoError(t, err)
				assert.False(t, stored)
				return
			}

			assert.Equal(t, []View{tt.wantView}, nav.views)
			cur := s.Current()
			require.NotNil(t, cur)
			assert.Equal(t, models.SchemeLegacy, cur.Scheme)
			assert.Equal(t, tt.username, cur.Username)
			assert.Empty(t, s.Token())

			rec, stored, err := repo.LoadLoggedInUser(ctx)
			require.NoError(t, err)
			require.True(t, stored)
			assert.Equal(t, tt.username, rec.Username)
		})
	}
}

func TestLoginLegacy_StorageError(t *testing.T) {
	s, _ := newStore(t, nil, &fakeAuth{})
	s.creds = &stubRepo{err: errors.New("disk gone")}
	ok, err := s.LoginLegacy(context.Background(), "carol", "pw")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestRegisterLocalThenLoginLegacy(t *testing.T) {
	repo := newRepo(t)
	s, _ := newStore(t, repo, &fakeAuth{})
	ctx := context.Background()

	u, err := s.RegisterLocal(ctx, models.LegacyUser{Username: " frank ", Name: "Frank"}, "secret")
	require.NoError(t, err)
	assert.Equal(t, "frank", u.Username)
	assert.Equal(t, "user", u.Role)
	assert.NotEmpty(t, u.ID)
	assert.Empty(t, u.Password)
	assert.NotEmpty(t, u.PasswordHash)

	_, err = s.RegisterLocal(ctx, models.LegacyUser{Username: "frank"}, "other")
	require.ErrorIs(t, err, ErrUserExists)

	_, err = s.RegisterLocal(ctx, models.LegacyUser{Username: "gina"}, "")
	require.ErrorIs(t, err, ErrInvalidUser)

	ok, err := s.LoginLegacy(ctx, "frank", "secret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogout_ClearsBothSlotsAndIsIdempotent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveUsers(ctx, []models.LegacyUser{{Username: "carol", Password: "pw"}}))

	auth := &fakeAuth{loginRes: models.AuthResult{Token: "jwt", Username: "alice"}}
	s, nav := newStore(t, repo, auth)
	require.NoError(t, s.Login(ctx, "alice", "pw"))

	require.NoError(t, s.Logout(ctx))
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Token())

	_, ok, err := repo.LoadToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = repo.LoadLoggedInUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "local user list survives logout")

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, []View{ViewUser, ViewLogin, ViewLogin}, nav.views)
}

func TestLogout_StorageFailureStillClearsSession(t *testing.T) {
	auth := &fakeAuth{loginRes: models.AuthResult{Token: "jwt", Username: "alice"}}
	s, nav := newStore(t, newRepo(t), auth)
	require.NoError(t, s.Login(context.Background(), "alice", "pw"))

	s.creds = &stubRepo{err: errors.New("disk gone")}
	require.Error(t, s.Logout(context.Background()))
	assert.Nil(t, s.Current())
	assert.Equal(t, ViewLogin, nav.views[len(nav.views)-1])
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	auth := &fakeAuth{loginRes: models.AuthResult{Token: "jwt", Username: "alice", Authorities: models.Authorities{"ROLE_USER"}}}
	s, _ := newStore(t, newRepo(t), auth)
	require.NoError(t, s.Login(context.Background(), "alice", "pw"))

	cur := s.Current()
	cur.Authorities[0] = "ROLE_ADMIN"
	cur.Username = "mallory"

	assert.False(t, s.Current().IsAdmin())
	assert.Equal(t, "alice", s.Current().Username)
}

func TestRegister_Delegates(t *testing.T) {
	auth := &fakeAuth{}
	s, _ := newStore(t, newRepo(t), auth)
	req := models.RegisterRequest{Username: "hana", Password: "pw", Role: "USER"}
	require.NoError(t, s.Register(context.Background(), req))
	assert.Equal(t, []models.RegisterRequest{req}, auth.registers)
}

func TestStoreIsTokenSource(t *testing.T) {
	var _ client.TokenSource = (*Store)(nil)
}

// stubRepo is an in-memory credentials.Repository whose methods all fail
// with err when it is set.
type stubRepo struct {
	err      error
	token    credentials.TokenCredentials
	hasToken bool
	legacy   models.LegacyUser
	hasUser  bool
	users    []models.LegacyUser
}

func (r *stubRepo) LoadToken(context.Context) (credentials.TokenCredentials, bool, error) {
	return r.token, r.hasToken, r.err
}
func (r *stubRepo) SaveToken(_ context.Context, c credentials.TokenCredentials) error {
	r.token, r.hasToken = c, true
	return r.err
}
func (r *stubRepo) LoadLoggedInUser(context.Context) (models.LegacyUser, bool, error) {
	return r.legacy, r.hasUser, r.err
}
func (r *stubRepo) SaveLoggedInUser(_ context.Context, u models.LegacyUser) error {
	r.legacy, r.hasUser = u, true
	return r.err
}
func (r *stubRepo) LoadUsers(context.Context) ([]models.LegacyUser, error) { return r.users, r.err }
func (r *stubRepo) SaveUsers(_ context.Context, users []models.LegacyUser) error {
	r.users = users
	return r.err
}
func (r *stubRepo) ClearSession(context.Context) error { return r.err }
