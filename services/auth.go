package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/auth"
	"food-delivery-backend/models"
)

type SignupInput struct {
	Name     string        `json:"name" binding:"required,max=100"`
	Email    string        `json:"email" binding:"required,email"`
	Password string        `json:"password" binding:"required,min=6"`
	Phone    string        `json:"phone" binding:"max=30"`
	Gender   models.Gender `json:"gender" binding:"omitempty,gender"`
}

type BusinessSignupInput struct {
	SignupInput
	BusinessName string   `json:"business_name" binding:"max=100"`
	Address      string   `json:"address" binding:"max=255"`
	Cuisine      []string `json:"cuisine"`
	OpeningHours string   `json:"opening_hours"`
	Description  string   `json:"description" binding:"max=1000"`
}

type DeliverySignupInput struct {
	SignupInput
	Vehicle       string `json:"vehicle" binding:"required,max=50"`
	LicenseNumber string `json:"license_number" binding:"max=50"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// UserSummary is the public view of a user returned with a token.
type UserSummary struct {
	ID    uint        `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Phone string      `json:"phone"`
	Role  models.Role `json:"role"`
}

func summarize(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role}
}

type AuthResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type AuthService struct {
	db          *gorm.DB
	tokens      *auth.TokenManager
	adminSignup bool
	log         *zap.Logger
}

// Signup registers a customer.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	return s.register(ctx, models.RoleCustomer, in, nil)
}

// SignupBusiness registers a business owner and their business profile in
// one transaction.
func (s *AuthService) SignupBusiness(ctx context.Context, in BusinessSignupInput) (*AuthResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	name := in.BusinessName
	if name == "" {
		name = in.Name
	}
	return s.register(ctx, models.RoleBusiness, in.SignupInput, func(tx *gorm.DB, u *models.User) error {
		return tx.Create(&models.Business{
			UserID:       u.ID,
			Name:         name,
			Address:      in.Address,
			Phone:        in.Phone,
			Description:  in.Description,
			Cuisine:      in.Cuisine,
			OpeningHours: in.OpeningHours,
		}).Error
	})
}

// SignupDelivery registers a delivery partner and their profile in one
// transaction.
func (s *AuthService) SignupDelivery(ctx context.Context, in DeliverySignupInput) (*AuthResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.register(ctx, models.RoleDelivery, in.SignupInput, func(tx *gorm.DB, u *models.User) error {
		return tx.Create(&models.DeliveryPartner{
			UserID:        u.ID,
			Phone:         in.Phone,
			Vehicle:       in.Vehicle,
			LicenseNumber: normalizeLicense(in.LicenseNumber),
			IsAvailable:   true,
		}).Error
	})
}

// SignupAdmin registers an administrator when admin signup is enabled.
func (s *AuthService) SignupAdmin(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if !s.adminSignup {
		return nil, apperr.Forbidden("admin signup is disabled")
	}
	return s.register(ctx, models.RoleAdmin, in, nil)
}

// CreateAdmin registers an administrator regardless of the signup switch.
func (s *AuthService) CreateAdmin(ctx context.Context, in SignupInput) (*models.User, error) {
	res, err := s.register(ctx, models.RoleAdmin, in, nil)
	if err != nil {
		return nil, err
	}
	return s.userByID(ctx, res.User.ID)
}

func (s *AuthService) register(ctx context.Context, role models.Role, in SignupInput, profile func(*gorm.DB, *models.User) error) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("auth.register", err)
	}
	gender := in.Gender
	if gender == "" {
		gender = models.GenderPreferNotSay
	}
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Phone:        in.Phone,
		Gender:       gender,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.DuplicateIdentity("a user with this email already exists")
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.DuplicateIdentity("a user with this email already exists")
			}
			return err
		}
		if profile != nil {
			return profile(tx, user)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("auth.register", "user", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return s.issue(user)
}

// Login checks the credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal("auth.login", err)
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	return s.issue(&user)
}

// Logout revokes the caller's token.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	if err := s.tokens.Revoke(ctx, id); err != nil {
		return apperr.Internal("auth.logout", err)
	}
	return nil
}

// CurrentUser returns the caller's user record.
func (s *AuthService) CurrentUser(ctx context.Context, id auth.Identity) (*models.User, error) {
	return s.userByID(ctx, id.UserID)
}

// ChangePassword replaces the caller's password, revokes the token used for
// the request and returns a fresh one. Other tokens of the user stay valid
// until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, id auth.Identity, in ChangePasswordInput) (*AuthResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	user, err := s.userByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
		return nil, apperr.Validation("current password is incorrect")
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return nil, apperr.Internal("auth.change_password", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return nil, apperr.Internal("auth.change_password", err)
	}
	if err := s.tokens.Revoke(ctx, id); err != nil {
		return nil, apperr.Internal("auth.change_password", err)
	}
	return s.issue(user)
}

func (s *AuthService) userByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storeErr("auth.user", "user", err)
	}
	return &user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal("auth.issue", err)
	}
	return &AuthResult{Token: token, User: summarize(user)}, nil
}
