package member

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"meettrack/internal/apperr"
	"meettrack/internal/auth"
	"meettrack/internal/model"
)

const bcryptCost = 12

// Store is the persistence boundary for users and their attendance history.
type Store interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u model.User) (model.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	DeleteUser(ctx context.Context, id string) error
	ListAttendanceByUser(ctx context.Context, userID string) ([]model.AttendanceRecord, error)
}

// Service implements signup, login and profile management.
type Service struct {
	store      Store
	issuer     string
	signingKey string
	tokenTTL   time.Duration
}

// NewService creates a member service.
func NewService(store Store, issuer, signingKey string, tokenTTL time.Duration) *Service {
	return &Service{store: store, issuer: issuer, signingKey: signingKey, tokenTTL: tokenTTL}
}

// SignupInput carries the fields accepted at registration.
type SignupInput struct {
	Name        string
	Email       string
	Password    string
	Position    string
	Division    string
	Generation  int
	Role        string
	DateOfBirth *time.Time
}

// Session is the result of a successful signup or login.
type Session struct {
	UserID  string
	Email   string
	Token   string
	IsAdmin bool
}

// Signup registers a new user and issues a token for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (model.User, Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" {
		return model.User{}, Session{}, apperr.Invalid("Invalid inputs passed, please check your data")
	}
	if len(in.Password) < 8 {
		return model.User{}, Session{}, apperr.Invalid("Password must be at least 8 characters")
	}
	if !model.ValidPosition(in.Position) {
		return model.User{}, Session{}, apperr.Invalid("Unknown position")
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if in.Role != model.RoleUser && in.Role != model.RoleAdmin {
		return model.User{}, Session{}, apperr.Invalid("Unknown role")
	}

	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return model.User{}, Session{}, apperr.Conflict("User already exists, please login instead")
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return model.User{}, Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return model.User{}, Session{}, apperr.Internal(err)
	}

	created, err := s.store.CreateUser(ctx, model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Position:     in.Position,
		Division:     in.Division,
		Generation:   in.Generation,
		DateOfBirth:  in.DateOfBirth,
	})
	if err != nil {
		return model.User{}, Session{}, err
	}

	sess, err := s.session(created)
	if err != nil {
		return model.User{}, Session{}, err
	}
	return created, sess, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	usr, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return Session{}, invalidCredentials()
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)) != nil {
		return Session{}, invalidCredentials()
	}
	return s.session(usr)
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id string) (model.User, error) {
	return s.store.GetUser(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

// ProfileInput carries the updatable profile fields. Zero values leave the
// current value untouched except Name/Email which are required.
type ProfileInput struct {
	Name        string
	Email       string
	Position    string
	Generation  int
	DateOfBirth *time.Time
	AvatarURL   string
}

// UpdateProfile updates the caller's own profile, keeping email unique.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	usr, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if in.Email != "" && in.Email != usr.Email {
		if other, err := s.store.GetUserByEmail(ctx, in.Email); err == nil && other.ID != id {
			return model.User{}, apperr.Conflict("Email already exists")
		} else if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return model.User{}, err
		}
		usr.Email = in.Email
	}
	if in.Name != "" {
		usr.Name = in.Name
	}
	if in.Position != "" {
		if !model.ValidPosition(in.Position) {
			return model.User{}, apperr.Invalid("Unknown position")
		}
		usr.Position = in.Position
	}
	if in.Generation != 0 {
		usr.Generation = in.Generation
	}
	if in.DateOfBirth != nil {
		usr.DateOfBirth = in.DateOfBirth
	}
	if in.AvatarURL != "" {
		usr.AvatarURL = in.AvatarURL
	}
	return s.store.UpdateUser(ctx, usr)
}

// UpdatePassword changes the caller's password after checking the old one.
func (s *Service) UpdatePassword(ctx context.Context, id, oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return apperr.Invalid("New password and confirm password does not match")
	}
	if len(newPassword) < 8 {
		return apperr.Invalid("Password must be at least 8 characters")
	}
	usr, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(oldPassword)) != nil {
		return invalidCredentials()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	return s.store.UpdatePassword(ctx, id, string(hash))
}

// Delete removes the user and, through the store, every attendance record
// referencing them.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteUser(ctx, id)
}

// MeetingsAttended returns the user's attendance history with meetings joined.
func (s *Service) MeetingsAttended(ctx context.Context, userID string) ([]model.AttendanceRecord, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListAttendanceByUser(ctx, userID)
}

func (s *Service) session(usr model.User) (Session, error) {
	tok, err := auth.Issue(usr.ID, usr.Email, usr.Role == model.RoleAdmin, s.issuer, s.signingKey, s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: usr.ID, Email: usr.Email, Token: tok.Value, IsAdmin: usr.Role == model.RoleAdmin}, nil
}

func invalidCredentials() error {
	return &apperr.Error{Kind: apperr.KindAuth, Msg: "Invalid credentials, could not log you in"}
}
