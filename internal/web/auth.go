package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/service"
	"github.com/erazemk/lostfound/internal/store"
)

type loginData struct {
	PageData
	Username string
	Next     string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if GetWebClaims(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "login.html", &loginData{
		PageData: s.page(w, r, "Log in"),
		Next:     safeNext(r.URL.Query().Get("next")),
	})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := safeNext(r.FormValue("next"))

	fail := func(message string) {
		data := &loginData{PageData: s.page(w, r, "Log in"), Username: username, Next: next}
		data.Flash = &Flash{Level: FlashError, Message: message}
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", data)
	}

	if username == "" || password == "" {
		fail("Enter your username and password.")
		return
	}

	user, err := s.Service.Authenticate(r.Context(), username, password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		fail("Please enter a correct username and password. Note that both fields may be case-sensitive.")
		return
	}
	if err != nil {
		slog.Error("failed to authenticate", "error", err)
		fail("Login failed. Try again later.")
		return
	}

	if err := s.login(w, user); err != nil {
		slog.Error("failed to generate token", "error", err)
		fail("Login failed. Try again later.")
		return
	}

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	redirectWithFlash(w, r, next, FlashSuccess, "Welcome back, "+user.DisplayName()+"!")
}

func (s *Server) login(w http.ResponseWriter, user *model.User) error {
	token, err := auth.GenerateToken(s.JWTSecret, user)
	if err != nil {
		return err
	}
	setAuthCookie(w, token)
	return nil
}

type registerData struct {
	PageData
	Form service.Registration
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if GetWebClaims(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "register.html", &registerData{PageData: s.page(w, r, "Create account")})
}

// RegisterSubmit handles POST /register.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	form := service.Registration{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password_confirm"),
	}

	user, err := s.Service.Register(r.Context(), form)
	if fields := model.FieldErrors(err); fields != nil {
		data := &registerData{PageData: s.page(w, r, "Create account"), Form: form}
		data.Form.Password, data.Form.PasswordConfirm = "", ""
		data.Errors = fields
		s.Templates.RenderStatus(w, http.StatusBadRequest, "register.html", data)
		return
	}
	if err != nil {
		slog.Error("failed to register user", "error", err)
		redirectWithFlash(w, r, "/register", FlashError, "Registration failed. Try again later.")
		return
	}

	if err := s.login(w, user); err != nil {
		slog.Error("failed to generate token", "error", err)
		redirectWithFlash(w, r, "/login", FlashSuccess, "Your account has been created. Please log in.")
		return
	}
	redirectWithFlash(w, r, "/", FlashSuccess, "Welcome, "+user.DisplayName()+"! Your account has been created.")
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := GetWebClaims(r.Context()); claims != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			slog.Error("failed to revoke token", "error", err)
		} else {
			slog.Info("user logged out", "user", claims.Username)
		}
	}
	clearAuthCookie(w)
	redirectWithFlash(w, r, "/", FlashInfo, "You have been logged out.")
}

// safeNext restricts post-login redirects to local paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// currentUser loads the account of the logged-in user, or nil.
func (s *Server) currentUser(r *http.Request) (*model.User, error) {
	claims := GetWebClaims(r.Context())
	if claims == nil {
		return nil, nil
	}
	return store.GetUser(r.Context(), s.DB, claims.UserID)
}
