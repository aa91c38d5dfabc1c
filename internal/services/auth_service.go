// internal/services/auth_service.go
package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/models"
	"github.com/eventra/eventra-backend/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid_credentials")

// AuthService issues tokens for the three actor kinds sharing one login
// endpoint per kind.
type AuthService struct {
	db  *gorm.DB
	cfg config.JWTConfig
}

func NewAuthService(db *gorm.DB, cfg config.JWTConfig) *AuthService {
	utils.SetJWTSecret(cfg.SecretKey)
	return &AuthService{db: db, cfg: cfg}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ActorType string      `json:"actor_type"`
	Actor     interface{} `json:"actor"`
}

func (s *AuthService) LoginUser(req *LoginRequest) (*LoginResponse, error) {
	var user models.User
	if err := s.db.First(&user, "email = ?", req.Email).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID, utils.ActorTypeUser, "", s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: token, ActorType: utils.ActorTypeUser, Actor: user}, nil
}

func (s *AuthService) LoginSeller(req *LoginRequest) (*LoginResponse, error) {
	var seller models.Seller
	if err := s.db.First(&seller, "email = ?", req.Email).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if !seller.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}
	if seller.Status == models.SellerStatusSuspended || seller.Status == models.SellerStatusRemoved {
		return nil, ErrSellerNotAllowed
	}

	token, err := utils.GenerateJWT(seller.ID, utils.ActorTypeSeller, seller.OrganizationID.String(), s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: token, ActorType: utils.ActorTypeSeller, Actor: seller}, nil
}

func (s *AuthService) LoginOrganization(req *LoginRequest) (*LoginResponse, error) {
	var org models.Organization
	if err := s.db.First(&org, "email = ?", req.Email).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if !org.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}
	if org.Status != models.OrganizationStatusActive {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(org.ID, utils.ActorTypeOrganization, org.ID.String(), s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: token, ActorType: utils.ActorTypeOrganization, Actor: org}, nil
}

type RegisterUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=8"`
}

func (s *AuthService) RegisterUser(req *RegisterUserRequest) (*models.User, error) {
	var count int64
	s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		return nil, errors.New("email already registered")
	}

	user := models.User{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}
