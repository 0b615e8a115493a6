// Package form implements the login/signup window: two mutually exclusive
// views, the actions that switch between them, and the hand-off to the
// inventory dashboard after a successful login.
package form

import (
	"context"
	"errors"
	"fmt"

	"inventory/auth"
	"inventory/db"
	"inventory/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// State is one window. The zero value is a fresh window showing the login view.
type State struct {
	View   models.View
	Closed bool
}

func (s *State) current() models.View {
	if s.View == "" {
		return models.ViewLogin
	}
	return s.View
}

// Outcome is what an action leaves behind for the presentation layer.
type Outcome struct {
	View   models.View
	Notice *models.Notice
	Closed bool

	// Set after a successful login.
	Identity *models.Identity
	// Location is where the dashboard hand-off routes the user. Empty when the
	// dashboard runs outside this process.
	Location string
}

type SignupRecorder interface {
	Record(ctx context.Context, req models.SignupRequest) error
}

// DiscardRecorder accepts every signup and keeps none of them.
type DiscardRecorder struct{}

func (DiscardRecorder) Record(context.Context, models.SignupRequest) error { return nil }

type Controller struct {
	auth      auth.Authenticator
	signups   SignupRecorder
	dashboard Dashboard
	validate  *validator.Validate
}

func NewController(a auth.Authenticator, signups SignupRecorder, dashboard Dashboard) *Controller {
	if signups == nil {
		signups = DiscardRecorder{}
	}
	return &Controller{
		auth:      a,
		signups:   signups,
		dashboard: dashboard,
		validate:  validator.New(),
	}
}

func (c *Controller) SwitchTo(st *State, v models.View) Outcome {
	if v != models.ViewSignup {
		v = models.ViewLogin
	}
	st.View = v
	return Outcome{View: v}
}

// Authenticate checks credentials without touching any window.
func (c *Controller) Authenticate(ctx context.Context, creds models.Credentials) (models.Identity, *models.Notice, error) {
	id, err := c.auth.Authenticate(ctx, creds)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return models.Identity{}, errorNotice("LoginFailedTitle", "LoginFailed"), nil
	}
	if err != nil {
		return models.Identity{}, nil, fmt.Errorf("authenticating %q: %w", creds.Username, err)
	}
	return id, infoNotice("LoginSuccessTitle", "LoginSuccess", id.Username), nil
}

func (c *Controller) SubmitLogin(ctx context.Context, st *State, creds models.Credentials) (Outcome, error) {
	id, notice, err := c.Authenticate(ctx, creds)
	if err != nil {
		return Outcome{}, err
	}
	if notice.Level == models.NoticeError {
		return Outcome{View: st.current(), Notice: notice}, nil
	}

	st.Closed = true
	out := Outcome{View: st.current(), Notice: notice, Closed: true, Identity: &id}

	// The window is gone either way; a dashboard that fails to open is only logged.
	loc, err := c.dashboard.Open(ctx, id)
	if err != nil {
		zap.L().Error("opening dashboard", zap.String("user", id.Username), zap.Error(err))
		return out, nil
	}
	out.Location = loc
	return out, nil
}

func (c *Controller) SubmitSignup(ctx context.Context, st *State, req models.SignupRequest) (Outcome, error) {
	out := Outcome{View: st.current()}

	pos, err := models.ParsePosition(string(req.Position))
	if err == nil {
		req.Position = pos
	}

	if err := c.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Outcome{}, err
		}
		out.Notice = errorNotice("ErrorTitle", "InvalidPosition")
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				out.Notice = errorNotice("ErrorTitle", "FillAllFields")
				break
			}
		}
		return out, nil
	}

	if err := c.signups.Record(ctx, req); err != nil {
		if errors.Is(err, db.ErrDuplicateAccount) {
			out.Notice = errorNotice("ErrorTitle", "AccountExists")
			return out, nil
		}
		return Outcome{}, fmt.Errorf("recording signup: %w", err)
	}

	out.Notice = infoNotice("SuccessTitle", "AccountCreated", req.Name)
	return out, nil
}

// Quit closes the window, dropping whatever was typed into it.
func (c *Controller) Quit(st *State) Outcome {
	st.Closed = true
	st.View = models.ViewLogin
	return Outcome{View: models.ViewLogin, Closed: true}
}

func infoNotice(title, message string, args ...string) *models.Notice {
	return &models.Notice{Level: models.NoticeInfo, Title: title, Message: message, Args: args}
}

func errorNotice(title, message string) *models.Notice {
	return &models.Notice{Level: models.NoticeError, Title: title, Message: message}
}
