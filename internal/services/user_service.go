package services

import (
	"errors"
	"strings"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates the user was not found
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates the username is already taken
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates invalid login credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordTooShort indicates the password is too short
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// UserService handles tenant users
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a user of a tenant with a bcrypt password hash
func (s *UserService) CreateUser(tenantID, username, password, nickname string) (*models.User, error) {
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}
	if tenantID == "" {
		tenantID = models.DefaultTenantID
	}
	username = strings.TrimSpace(username)

	var existing models.User
	if err := s.db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser := &models.User{
		TenantID:     tenantID,
		Username:     username,
		PasswordHash: hashed,
		Nickname:     nickname,
	}
	if err := s.db.Create(newUser).Error; err != nil {
		return nil, err
	}
	return newUser, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var found models.User
	if err := s.db.First(&found, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &found, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	var found models.User
	if err := s.db.Where("username = ?", username).First(&found).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &found, nil
}

// ListUsers returns the users of a tenant, or all users when tenantID is empty
func (s *UserService) ListUsers(tenantID string) ([]models.User, error) {
	db := s.db.Order("id")
	if tenantID != "" {
		db = db.Where("tenant_id = ?", tenantID)
	}
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// VerifyPassword verifies a user's password
func (s *UserService) VerifyPassword(username, password string) (*models.User, error) {
	found, err := s.GetUserByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !ComparePassword(found.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return found, nil
}

// ResetPassword replaces a user's password
func (s *UserService) ResetPassword(id uint, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}
	found, err := s.GetUserByID(id)
	if err != nil {
		return err
	}
	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.Model(found).Update("password_hash", hashed).Error
}

// IsPasswordHashed checks if a string looks like a bcrypt hash
func IsPasswordHashed(password string) bool {
	if len(password) < 4 {
		return false
	}
	return password[:4] == "$2a$" || password[:4] == "$2b$" || password[:4] == "$2y$"
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword compares a password with a hash
func ComparePassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
