package form

import (
	"context"
	"errors"
	"testing"

	"inventory/auth"
	"inventory/db"
	"inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDashboard struct {
	opened []models.Identity
	err    error
}

func (d *recordingDashboard) Open(_ context.Context, id models.Identity) (string, error) {
	d.opened = append(d.opened, id)
	if d.err != nil {
		return "", d.err
	}
	return "/dashboard", nil
}

type memoryRecorder struct {
	got []models.SignupRequest
	err error
}

func (m *memoryRecorder) Record(_ context.Context, req models.SignupRequest) error {
	if m.err != nil {
		return m.err
	}
	m.got = append(m.got, req)
	return nil
}

type brokenAuth struct{}

func (brokenAuth) Authenticate(context.Context, models.Credentials) (models.Identity, error) {
	return models.Identity{}, errors.New("connection refused")
}

func newTestController() (*Controller, *recordingDashboard, *memoryRecorder) {
	dash := &recordingDashboard{}
	rec := &memoryRecorder{}
	a := auth.StaticAuthenticator{Username: "admin", Password: "1234"}
	return NewController(a, rec, dash), dash, rec
}

func TestSubmitLoginSuccessOpensDashboard(t *testing.T) {
	c, dash, _ := newTestController()
	var st State

	out, err := c.SubmitLogin(context.Background(), &st, models.Credentials{Username: "admin", Password: "1234"})
	require.NoError(t, err)

	require.NotNil(t, out.Notice)
	assert.Equal(t, models.NoticeInfo, out.Notice.Level)
	assert.Equal(t, "LoginSuccess", out.Notice.Message)
	assert.Equal(t, []string{"admin"}, out.Notice.Args)
	assert.True(t, out.Closed)
	assert.True(t, st.Closed)
	require.NotNil(t, out.Identity)
	assert.Equal(t, "admin", out.Identity.Username)
	assert.Equal(t, "/dashboard", out.Location)
	require.Len(t, dash.opened, 1)
	assert.Equal(t, "admin", dash.opened[0].Username)
}

func TestSubmitLoginFailureKeepsWindowOpen(t *testing.T) {
	c, dash, _ := newTestController()

	for _, creds := range []models.Credentials{
		{Username: "admin", Password: "wrong"},
		{Username: "ADMIN", Password: "1234"},
		{Username: "", Password: ""},
	} {
		var st State
		out, err := c.SubmitLogin(context.Background(), &st, creds)
		require.NoError(t, err)

		require.NotNil(t, out.Notice, "creds %+v", creds)
		assert.Equal(t, models.NoticeError, out.Notice.Level)
		assert.Equal(t, "LoginFailedTitle", out.Notice.Title)
		assert.Equal(t, "LoginFailed", out.Notice.Message)
		assert.False(t, out.Closed)
		assert.False(t, st.Closed)
		assert.Nil(t, out.Identity)
		assert.Equal(t, models.ViewLogin, out.View)
	}
	assert.Empty(t, dash.opened)
}

func TestSubmitLoginDashboardFailureIsNotFatal(t *testing.T) {
	c, dash, _ := newTestController()
	dash.err = errors.New("exec: not found")
	var st State

	out, err := c.SubmitLogin(context.Background(), &st, models.Credentials{Username: "admin", Password: "1234"})
	require.NoError(t, err)
	assert.True(t, out.Closed)
	assert.NotNil(t, out.Identity)
	assert.Empty(t, out.Location)
}

func TestSubmitLoginAuthenticatorError(t *testing.T) {
	c := NewController(brokenAuth{}, nil, RouteDashboard{})
	var st State

	_, err := c.SubmitLogin(context.Background(), &st, models.Credentials{Username: "admin", Password: "1234"})
	assert.Error(t, err)
	assert.False(t, st.Closed)
}

func TestSubmitSignupMissingFields(t *testing.T) {
	c, _, rec := newTestController()
	full := models.SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "pw", Position: models.PositionStaff}

	cases := map[string]func(r *models.SignupRequest){
		"name":     func(r *models.SignupRequest) { r.Name = "" },
		"email":    func(r *models.SignupRequest) { r.Email = "" },
		"password": func(r *models.SignupRequest) { r.Password = "" },
		"all":      func(r *models.SignupRequest) { *r = models.SignupRequest{} },
		"invalid position too": func(r *models.SignupRequest) {
			r.Email = ""
			r.Position = "Intern"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := full
			mutate(&req)
			st := State{View: models.ViewSignup}

			out, err := c.SubmitSignup(context.Background(), &st, req)
			require.NoError(t, err)
			require.NotNil(t, out.Notice)
			assert.Equal(t, models.NoticeError, out.Notice.Level)
			assert.Equal(t, "FillAllFields", out.Notice.Message)
			assert.Equal(t, models.ViewSignup, out.View)
		})
	}
	assert.Empty(t, rec.got)
}

func TestSubmitSignupSuccess(t *testing.T) {
	c, _, rec := newTestController()
	st := State{View: models.ViewSignup}

	out, err := c.SubmitSignup(context.Background(), &st, models.SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NotNil(t, out.Notice)
	assert.Equal(t, models.NoticeInfo, out.Notice.Level)
	assert.Equal(t, "AccountCreated", out.Notice.Message)
	assert.Equal(t, []string{"Ada"}, out.Notice.Args)
	assert.False(t, out.Closed)

	require.Len(t, rec.got, 1)
	assert.Equal(t, models.PositionAdmin, rec.got[0].Position, "empty position defaults to the first choice")
}

func TestSubmitSignupWhitespaceCountsAsFilled(t *testing.T) {
	c, _, _ := newTestController()
	var st State

	out, err := c.SubmitSignup(context.Background(), &st, models.SignupRequest{Name: " ", Email: " ", Password: " "})
	require.NoError(t, err)
	assert.Equal(t, "AccountCreated", out.Notice.Message)
}

func TestSubmitSignupInvalidPosition(t *testing.T) {
	c, _, rec := newTestController()
	var st State

	out, err := c.SubmitSignup(context.Background(), &st, models.SignupRequest{Name: "Ada", Email: "a@b", Password: "pw", Position: "Intern"})
	require.NoError(t, err)
	assert.Equal(t, "InvalidPosition", out.Notice.Message)
	assert.Empty(t, rec.got)
}

func TestSubmitSignupDuplicate(t *testing.T) {
	c, _, rec := newTestController()
	rec.err = db.ErrDuplicateAccount
	var st State

	out, err := c.SubmitSignup(context.Background(), &st, models.SignupRequest{Name: "Ada", Email: "a@b", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, models.NoticeError, out.Notice.Level)
	assert.Equal(t, "AccountExists", out.Notice.Message)
}

func TestSubmitSignupRecorderError(t *testing.T) {
	c, _, rec := newTestController()
	rec.err = errors.New("disk full")
	var st State

	_, err := c.SubmitSignup(context.Background(), &st, models.SignupRequest{Name: "Ada", Email: "a@b", Password: "pw"})
	assert.Error(t, err)
}

func TestSwitchToIsIdempotentAndReversible(t *testing.T) {
	c, _, _ := newTestController()
	var st State

	assert.Equal(t, models.ViewLogin, st.current())

	out := c.SwitchTo(&st, models.ViewSignup)
	assert.Equal(t, models.ViewSignup, out.View)
	c.SwitchTo(&st, models.ViewSignup)
	assert.Equal(t, models.ViewSignup, st.View)

	out = c.SwitchTo(&st, models.ViewLogin)
	assert.Equal(t, models.ViewLogin, out.View)
	assert.Nil(t, out.Notice)
	assert.False(t, st.Closed)

	c.SwitchTo(&st, models.View("bogus"))
	assert.Equal(t, models.ViewLogin, st.View)
}

func TestQuit(t *testing.T) {
	c, dash, _ := newTestController()
	st := State{View: models.ViewSignup}

	out := c.Quit(&st)
	assert.True(t, out.Closed)
	assert.True(t, st.Closed)
	assert.Equal(t, models.ViewLogin, st.View)
	assert.Empty(t, dash.opened)
}

func TestDiscardRecorderDefault(t *testing.T) {
	c := NewController(auth.StaticAuthenticator{Username: "admin", Password: "1234"}, nil, RouteDashboard{})
	var st State

	out, err := c.SubmitSignup(context.Background(), &st, models.SignupRequest{Name: "Ada", Email: "a@b", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "AccountCreated", out.Notice.Message)
}
