package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"inventory/auth"
	"inventory/config"
	"inventory/form"
	"inventory/i18n"
	"inventory/models"
	"inventory/web"

	"github.com/dchest/captcha"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

type AccountLister interface {
	List(ctx context.Context) ([]models.Account, error)
}

type Options struct {
	Controller *form.Controller
	// Accounts backs the admin account table on the dashboard. Nil when
	// signups are not persisted.
	Accounts AccountLister
}

var (
	controller *form.Controller
	accounts   AccountLister
)

func RegisterHandlers(mux *http.ServeMux, opts Options) {
	controller = opts.Controller
	accounts = opts.Accounts

	mux.Handle("/static/", http.FileServer(http.FS(web.Static)))
	if config.AppConfig.CaptchaEnabled {
		mux.Handle("/captcha/", captcha.Server(captcha.StdWidth, captcha.StdHeight))
	}

	mux.HandleFunc("/", IndexHandler)
	mux.HandleFunc("/login", LoginHandler)
	mux.HandleFunc("/signup", SignupHandler)
	mux.HandleFunc("/quit", QuitHandler)
	mux.HandleFunc("/dashboard", DashboardHandler)
	mux.HandleFunc("/logout", LogoutHandler)

	// JSON API
	mux.HandleFunc("/api/v1/login", APILoginHandler)
	mux.HandleFunc("/api/v1/signup", APISignupHandler)
	mux.HandleFunc("/api/v1/session", APISessionHandler)
}

func IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, ok := auth.GetIdentity(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	renderView(w, r, http.StatusOK, auth.GetView(r), nil)
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		switchView(w, r, models.ViewLogin)
	case http.MethodPost:
		submitLogin(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func SignupHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		switchView(w, r, models.ViewSignup)
	case http.MethodPost:
		submitSignup(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func switchView(w http.ResponseWriter, r *http.Request, v models.View) {
	st := form.State{View: auth.GetView(r)}
	out := controller.SwitchTo(&st, v)
	auth.SetView(w, r, out.View)
	renderView(w, r, http.StatusOK, out.View, nil)
}

func submitLogin(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	if config.AppConfig.RateLimitEnabled && !loginLimiter.Allow(ip) {
		renderView(w, r, http.StatusTooManyRequests, models.ViewLogin, &models.Notice{
			Level: models.NoticeError, Title: "LoginFailedTitle", Message: "TooManyAttempts",
		})
		return
	}

	if config.AppConfig.CaptchaEnabled && !captcha.VerifyString(r.FormValue("captcha_id"), r.FormValue("captcha_solution")) {
		loginLimiter.RecordFailure(ip)
		renderView(w, r, failureStatus(r, http.StatusUnauthorized), models.ViewLogin, &models.Notice{
			Level: models.NoticeError, Title: "LoginFailedTitle", Message: "CaptchaInvalid",
		})
		return
	}

	st := form.State{View: models.ViewLogin}
	creds := models.Credentials{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	out, err := controller.SubmitLogin(r.Context(), &st, creds)
	if err != nil {
		serverError(w, r, err)
		return
	}

	if out.Identity == nil {
		loginLimiter.RecordFailure(ip)
		renderView(w, r, failureStatus(r, http.StatusUnauthorized), out.View, out.Notice)
		return
	}
	loginLimiter.Reset(ip)

	if out.Location == "" {
		// The dashboard runs as its own application; nothing is left for this window.
		auth.ClearSession(w, r)
		renderTemplate(w, r, http.StatusOK, "closed.html", map[string]any{
			"External": true,
			"Notices":  []models.Notice{*out.Notice},
		})
		return
	}

	auth.SetSession(w, r, *out.Identity)
	auth.AddNotice(w, r, *out.Notice)
	redirect(w, r, out.Location)
}

func submitSignup(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	if config.AppConfig.RateLimitEnabled && !signupLimiter.Allow(ip) {
		renderView(w, r, http.StatusTooManyRequests, models.ViewSignup, &models.Notice{
			Level: models.NoticeError, Title: "ErrorTitle", Message: "TooManyAttempts",
		})
		return
	}

	st := form.State{View: models.ViewSignup}
	req := models.SignupRequest{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Position: models.Position(r.FormValue("position")),
	}
	out, err := controller.SubmitSignup(r.Context(), &st, req)
	if err != nil {
		serverError(w, r, err)
		return
	}

	status := http.StatusOK
	if out.Notice.Level == models.NoticeError {
		status = failureStatus(r, http.StatusBadRequest)
	} else {
		// Record signup attempt to limit rate of creation per IP
		signupLimiter.RecordFailure(ip)
	}
	renderView(w, r, status, out.View, out.Notice)
}

func QuitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := form.State{View: auth.GetView(r)}
	controller.Quit(&st)
	auth.ClearSession(w, r)
	renderTemplate(w, r, http.StatusOK, "closed.html", map[string]any{"External": false})
}

func DashboardHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.GetIdentity(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	lang := i18n.DetectLanguage(r)
	data := map[string]any{
		"SignedInAs": i18n.Format(lang, "SignedInAs", id.Username, id.Role),
		"Notices":    auth.PopNotices(w, r),
	}
	if accounts != nil && id.Admin {
		list, err := accounts.List(r.Context())
		if err != nil {
			serverError(w, r, err)
			return
		}
		data["Accounts"] = list
	}
	renderTemplate(w, r, http.StatusOK, "dashboard.html", data)
}

func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	auth.ClearSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func renderView(w http.ResponseWriter, r *http.Request, status int, v models.View, notice *models.Notice) {
	data := map[string]any{"ShowBack": true}
	if notice != nil {
		data["Notices"] = []models.Notice{*notice}
	}

	name := "login.html"
	if v == models.ViewSignup {
		name = "signup.html"
		data["Positions"] = models.Positions
	} else if config.AppConfig.CaptchaEnabled {
		data["CaptchaID"] = captcha.New()
	}
	renderTemplate(w, r, status, name, data)
}

type renderedNotice struct {
	Level   string
	Title   string
	Message string
}

func renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	lang := i18n.DetectLanguage(r)

	funcMap := template.FuncMap{
		"T": func(key string) string {
			return i18n.T(lang, key)
		},
	}

	tmpl, err := template.New(name).Funcs(funcMap).ParseFS(web.Templates, "templates/layout.html", "templates/"+name)
	if err != nil {
		serverError(w, r, err)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["AppName"]; !exists {
		data["AppName"] = config.AppConfig.AppName
	}
	data["Lang"] = lang
	data["csrfField"] = csrf.TemplateField(r)

	var notices []renderedNotice
	if raw, ok := data["Notices"].([]models.Notice); ok {
		for _, n := range raw {
			notices = append(notices, renderedNotice{
				Level:   n.Level,
				Title:   i18n.T(lang, n.Title),
				Message: i18n.Format(lang, n.Message, n.Args...),
			})
		}
	}
	data["Notices"] = notices

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// failureStatus picks the status for a re-rendered form. HTMX doesn't swap
// 4xx responses by default, so boosted requests get 200 OK.
func failureStatus(r *http.Request, status int) int {
	if r.Header.Get("HX-Request") == "true" {
		return http.StatusOK
	}
	return status
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", w.Header().Get("X-Request-ID")),
		zap.Error(err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
