package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// ErrInvalidCredentials is returned when a username and password do not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// MaxUsernameLen is the longest accepted username.
const MaxUsernameLen = 150

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Registration is the sign-up form.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// Validate checks the form. Text fields are trimmed in place.
func (r *Registration) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = model.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)

	v := &model.ValidationError{}
	switch {
	case r.Username == "":
		v.Add("username", "This field is required.")
	case len(r.Username) > MaxUsernameLen:
		v.Add("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(r.Username):
		v.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	if err := validateEmail(r.Email); err != nil {
		v.Add("email", model.FieldErrors(err)["email"])
	}
	if r.Password == "" {
		v.Add("password", "This field is required.")
	} else if err := model.ValidatePassword(r.Password); err != nil {
		v.Add("password", "This password is too short. It must contain at least 8 characters.")
	}
	if r.Password != r.PasswordConfirm {
		v.Add("password_confirm", "The two password fields didn't match.")
	}
	return v.OrNil()
}

// Register creates a regular user account.
func (s *LostFound) Register(ctx context.Context, reg Registration) (*model.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, s.DB, model.User{
		Username:     reg.Username,
		Email:        reg.Email,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		v := &model.ValidationError{}
		v.Add("username", "A user with that username already exists.")
		return nil, v
	}
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user", user.Username)
	return user, nil
}

// Authenticate checks a username and password.
func (s *LostFound) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := store.GetUserByUsername(ctx, s.DB, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
