package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/greenwich/internal/helpers"
	"github.com/joshua-takyi/greenwich/internal/models"
)

type UserService struct {
	store  models.Store
	tokens *helpers.TokenManager
	logger *slog.Logger
}

func NewUserService(store models.Store, tokens *helpers.TokenManager, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

type RegisterInput struct {
	Username         string   `json:"username" validate:"required"`
	Email            string   `json:"email" validate:"required,email"`
	Password         string   `json:"password" validate:"required,bcryptlen"`
	Name             string   `json:"name"`
	Surname          string   `json:"surname"`
	ProfileImage     string   `json:"profileImage"`
	OrganizationName string   `json:"organizationName"`
	OrganizationType []string `json:"organizationType"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is what register and login hand back to the client.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (us *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = helpers.StringTrim(in.Username)
	in.Email = strings.ToLower(helpers.StringTrim(in.Email))
	if err := models.Validate.Struct(in); err != nil {
		return nil, models.NewValidationError(helpers.ValidationMessage(err))
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewServerError("Server error during registration", err)
	}

	user, err := us.store.InsertUser(ctx, &models.User{
		Username:         in.Username,
		Email:            in.Email,
		Password:         hash,
		Name:             helpers.StringTrim(in.Name),
		Surname:          helpers.StringTrim(in.Surname),
		ProfileImage:     helpers.StringTrim(in.ProfileImage),
		OrganizationName: helpers.StringTrim(in.OrganizationName),
		OrganizationType: in.OrganizationType,
		Role:             models.RoleUser,
		IsApproved:       models.ApprovalPending,
	})
	if err != nil {
		return nil, storeError("Server error during registration", err)
	}

	token, err := us.tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	us.logger.Info("user registered", "user_id", user.ID, "backend", us.store.Backend())
	return &AuthResult{User: user, Token: token}, nil
}

// Login accepts email or username. Unknown accounts and wrong passwords
// fail identically.
func (us *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(helpers.StringTrim(in.Email))
	username := helpers.StringTrim(in.Username)
	if (email == "" && username == "") || in.Password == "" {
		return nil, models.NewValidationError("Email/username and password are required")
	}

	var user *models.User
	var err error
	if email != "" {
		user, err = us.store.FindUserByEmail(ctx, email)
	} else {
		user, err = us.store.FindUserByUsername(ctx, username)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewAuthError(models.KindInvalidCredentials, "Invalid credentials")
		}
		return nil, storeError("Server error during login", err)
	}
	if !helpers.CheckPassword(user.Password, in.Password) {
		return nil, models.NewAuthError(models.KindInvalidCredentials, "Invalid credentials")
	}

	token, err := us.tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
func (us *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := us.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	user, err := us.store.FindUserByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewAuthError(models.KindUserNotFound, "User not found. Please authenticate.")
		}
		return nil, storeError("Authentication failed", err)
	}
	return user, nil
}

func (us *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := us.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("Server error fetching profile", err)
	}
	return user, nil
}

func (us *UserService) UpdateProfile(ctx context.Context, userID string, update models.UserUpdate) (*models.User, error) {
	update.IsApproved = nil
	if update.IsEmpty() {
		return nil, models.NewValidationError("no profile fields to update")
	}
	for _, field := range []*string{update.Name, update.Surname, update.ProfileImage, update.OrganizationName} {
		if field != nil {
			*field = helpers.StringTrim(*field)
		}
	}

	user, err := us.store.UpdateUser(ctx, userID, update)
	if err != nil {
		return nil, storeError("Server error updating profile", err)
	}
	return user, nil
}

// ListUsers returns every regular account, newest first.
func (us *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := us.store.ListUsers(ctx, models.UserFilter{Role: models.RoleUser})
	if err != nil {
		return nil, storeError("Server error fetching users", err)
	}
	return users, nil
}

func (us *UserService) PendingApprovals(ctx context.Context) ([]*models.User, error) {
	users, err := us.store.ListUsers(ctx, models.UserFilter{
		Role:          models.RoleUser,
		ApprovalState: models.ApprovalPending,
	})
	if err != nil {
		return nil, storeError("Server error fetching pending approvals", err)
	}
	return users, nil
}

func (us *UserService) Approve(ctx context.Context, userID string) (*models.User, error) {
	return us.setApproval(ctx, userID, models.ApprovalApproved)
}

func (us *UserService) Reject(ctx context.Context, userID string) (*models.User, error) {
	return us.setApproval(ctx, userID, models.ApprovalRejected)
}

func (us *UserService) setApproval(ctx context.Context, userID, state string) (*models.User, error) {
	user, err := us.store.UpdateUser(ctx, userID, models.UserUpdate{IsApproved: &state})
	if err != nil {
		return nil, storeError("Server error updating approval", err)
	}
	us.logger.Info("approval state changed", "user_id", user.ID, "state", state)
	return user, nil
}

// AdminSeed describes the default administrator.
type AdminSeed struct {
	ID       string
	Email    string
	Password string
}

// SeedAdmin inserts the administrator into target unless an account with
// that email already exists there. It reports whether an insert happened.
func (us *UserService) SeedAdmin(ctx context.Context, target models.Store, seed AdminSeed) (bool, error) {
	seed.Email = strings.ToLower(helpers.StringTrim(seed.Email))
	if _, err := target.FindUserByEmail(ctx, seed.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	hash, err := helpers.HashPassword(seed.Password)
	if err != nil {
		return false, err
	}
	_, err = target.InsertUser(ctx, &models.User{
		ID:               seed.ID,
		Username:         "admin",
		Email:            seed.Email,
		Password:         hash,
		Name:             "Admin",
		Surname:          "User",
		OrganizationName: "Greenwich Admin",
		OrganizationType: []string{"Administration"},
		Role:             models.RoleAdmin,
		IsApproved:       models.ApprovalApproved,
	})
	if err != nil {
		return false, err
	}
	us.logger.Info("default admin created", "email", seed.Email, "backend", target.Backend())
	return true, nil
}
