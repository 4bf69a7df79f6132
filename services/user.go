package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tripplanner-backend/database"
	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

const maxSearchResults = 20

type UserService struct {
	db         *gorm.DB
	bcryptCost int
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, bcryptCost: bcrypt.DefaultCost}
}

type RegisterParams struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Currency string
}

func (s *UserService) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	email := normalizeEmail(p.Email)
	name := strings.TrimSpace(p.Name)
	if email == "" || name == "" {
		return nil, invalid("name and email are required")
	}
	currency := strings.ToUpper(p.Currency)
	if currency == "" {
		currency = utils.DefaultCurrency
	}
	if !utils.ValidCurrency(currency) {
		return nil, invalid("unsupported currency %q", p.Currency)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(p.Phone),
		PasswordHash: string(hash),
		Currency:     currency,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login returns ErrUnauthenticated for both unknown emails and bad passwords.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &Error{Kind: ErrUnauthenticated, Msg: "invalid email or password"}
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &Error{Kind: ErrUnauthenticated, Msg: "invalid email or password"}
	}
	return &user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// UpdateProfileParams leaves fields untouched when nil.
type UpdateProfileParams struct {
	Name      *string
	Phone     *string
	AvatarURL *string
	Currency  *string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, p UpdateProfileParams) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		updates["name"] = name
	}
	if p.Phone != nil {
		updates["phone"] = strings.TrimSpace(*p.Phone)
	}
	if p.AvatarURL != nil {
		updates["avatar_url"] = *p.AvatarURL
	}
	if p.Currency != nil {
		currency := strings.ToUpper(*p.Currency)
		if !utils.ValidCurrency(currency) {
			return nil, invalid("unsupported currency %q", *p.Currency)
		}
		updates["currency"] = currency
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *UserService) UpdateFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", token)
	if res.Error != nil {
		return fmt.Errorf("update fcm token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("user not found")
	}
	return nil
}

// Search matches name, email or phone case-insensitively, excluding the caller.
func (s *UserService) Search(ctx context.Context, requesterID uuid.UUID, query string) ([]models.User, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < 2 {
		return nil, invalid("query must be at least 2 characters")
	}
	pattern := "%" + escapeLike(q) + "%"

	var users []models.User
	err := s.db.WithContext(ctx).
		Where("id <> ?", requesterID).
		Where("LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\' OR phone LIKE ? ESCAPE '\\'", pattern, pattern, pattern).
		Order("name ASC").
		Limit(maxSearchResults).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
