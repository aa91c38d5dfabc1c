// internal/models/user.go
package models

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name         string `json:"name" gorm:"size:255;not null"`
	Email        string `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Phone        string `json:"phone" gorm:"size:32"`
	PasswordHash string `json:"-" gorm:"size:255"`
	IsAdmin      bool   `json:"is_admin" gorm:"default:false"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Organization publishes events and, when KYC-verified, may operate a pool of
// sellers (a "super-seller").
type Organization struct {
	BaseModel
	Name          string             `json:"name" gorm:"size:255;not null"`
	Email         string             `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash  string             `json:"-" gorm:"size:255"`
	Status        OrganizationStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	KYCVerified   bool               `json:"kyc_verified" gorm:"default:false"`
	IsSuperSeller bool               `json:"is_super_seller" gorm:"default:false"`
	Balance       float64            `json:"balance" gorm:"type:decimal(12,2);default:0"`

	// Relationships
	Events  []Event  `json:"events,omitempty" gorm:"foreignKey:OrganizationID"`
	Sellers []Seller `json:"sellers,omitempty" gorm:"foreignKey:OrganizationID"`
}

func (o *Organization) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = string(hash)
	return nil
}

func (o *Organization) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password)) == nil
}

// Seller is a person affiliated to a super-seller organization, authorized to
// resell from stocks allocated to them.
type Seller struct {
	BaseModel
	OrganizationID uuid.UUID    `json:"organization_id" gorm:"type:uuid;not null;index"`
	Name           string       `json:"name" gorm:"size:255;not null"`
	Email          string       `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Phone          string       `json:"phone" gorm:"size:32"`
	PasswordHash   string       `json:"-" gorm:"size:255"`
	Status         SellerStatus `json:"status" gorm:"type:varchar(20);default:'invited';index"`

	// Relationships
	Organization Organization  `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	Stocks       []SellerStock `json:"stocks,omitempty" gorm:"foreignKey:SellerID"`
}

func (s *Seller) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = string(hash)
	return nil
}

func (s *Seller) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) == nil
}

// CanSell reports whether the seller may currently hold stock and sell.
func (s *Seller) CanSell() bool {
	return s.Status == SellerStatusActive
}

// MayHoldStock covers both active sellers and freshly invited ones that were
// pre-allocated stock before accepting the invitation.
func (s *Seller) MayHoldStock() bool {
	return s.Status == SellerStatusActive || s.Status == SellerStatusInvited
}
