package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PasswordCost is the bcrypt cost for new digests.
var PasswordCost = bcrypt.DefaultCost

var (
	emailRegex   = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z\d\-.]+\.[a-z]+$`)
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
)

// CanChangeRole is false when the change would demote the last admin.
func CanChangeRole(user models.User, newRole models.Role, otherAdmins int) bool {
	return !(user.IsAdmin() && newRole != models.RoleAdmin && otherAdmins == 0)
}

// CanDestroy is false when user is the last admin.
func CanDestroy(user models.User, otherAdmins int) bool {
	return !(user.IsAdmin() && otherAdmins == 0)
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

// UserPatch changes profile fields. Nil means unchanged.
type UserPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

type UserService struct {
	db           *gorm.DB
	availability *AvailabilityService
	events       Publisher
}

func NewUserService(db *gorm.DB, availability *AvailabilityService, events Publisher) *UserService {
	return &UserService{db: db, availability: availability, events: publisherOrNop(events)}
}

// Register is public sign-up. The new account is always a regular user.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.Create(ctx, in, models.RoleUser)
}

// Create adds an account with the given role.
func (s *UserService) Create(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	user := models.User{
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Phone: strings.TrimSpace(in.Phone),
		Role:  role,
	}

	var errs ValidationErrors
	validateName(&errs, user.Name)
	validateEmail(&errs, user.Email)
	validatePassword(&errs, in.Password)
	if len(errs) > 0 {
		return nil, errs
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(in.Password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordDigest = string(digest)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkEmailFree(tx, user.Email, 0); err != nil {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, classifyUserError(err, "create")
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	return &user, nil
}

// Authenticate returns the user when email and password match.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update changes the profile of id. Only the user themself or an admin may
// do so.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint, patch UserPatch) (*models.User, error) {
	if !actor.can(id) {
		return nil, ErrNotAuthorized
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			return notFound(err, "user")
		}

		var errs ValidationErrors
		if patch.Name != nil {
			user.Name = strings.TrimSpace(*patch.Name)
			validateName(&errs, user.Name)
		}
		if patch.Email != nil {
			user.Email = normalizeEmail(*patch.Email)
			validateEmail(&errs, user.Email)
		}
		if patch.Phone != nil {
			user.Phone = strings.TrimSpace(*patch.Phone)
		}
		if patch.Password != nil {
			validatePassword(&errs, *patch.Password)
		}
		if len(errs) > 0 {
			return errs
		}

		if patch.Password != nil {
			digest, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), PasswordCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user.PasswordDigest = string(digest)
		}
		if patch.Email != nil {
			if err := s.checkEmailFree(tx, user.Email, user.ID); err != nil {
				return err
			}
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, classifyUserError(err, "update")
	}

	utils.InfoLogger.Printf("User %d updated", user.ID)
	return &user, nil
}

// ChangeRole sets the role of id. The admin rows are locked and counted in
// the same transaction as the write, so two concurrent demotions cannot both
// pass the last-admin check.
func (s *UserService) ChangeRole(ctx context.Context, actor Actor, id uint, role models.Role) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		others, err := lockUserAndAdmins(tx, id, &user)
		if err != nil {
			return err
		}
		if !CanChangeRole(user, role, others) {
			return &DeniedError{Field: "role", Reason: MsgLastAdminRole}
		}
		if user.Role == role {
			return nil
		}
		user.Role = role
		return tx.Model(&user).Update("role", role).Error
	})
	if err != nil {
		return nil, classifyUserError(err, "update")
	}

	utils.InfoLogger.Printf("User %d role set to %s by %d", user.ID, user.Role, actor.UserID)
	return &user, nil
}

// Destroy deletes id together with its reservations. The last admin cannot be
// deleted.
func (s *UserService) Destroy(ctx context.Context, actor Actor, id uint) error {
	if !actor.can(id) {
		return ErrNotAuthorized
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		others, err := lockUserAndAdmins(tx, id, &user)
		if err != nil {
			return err
		}
		if !CanDestroy(user, others) {
			return denied(MsgLastAdminDestroy)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Reservation{}).Error; err != nil {
			return fmt.Errorf("failed to delete reservations: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.Printf("User %d deleted by %d", id, actor.UserID)
	s.availability.Invalidate(ctx)
	s.events.Publish(EventAvailabilityChanged, map[string]interface{}{"user_id": id})
	return nil
}

// lockUserAndAdmins loads id into user and returns how many other admins
// exist. Every admin row is locked in id order; ids are plucked rather than
// counted because postgres rejects FOR UPDATE on aggregates.
func lockUserAndAdmins(tx *gorm.DB, id uint, user *models.User) (int, error) {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(user, id).Error; err != nil {
		return 0, notFound(err, "user")
	}

	var adminIDs []uint
	if err := tx.Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("role = ?", models.RoleAdmin).
		Order("id ASC").
		Pluck("id", &adminIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}

	others := 0
	for _, adminID := range adminIDs {
		if adminID != id {
			others++
		}
	}
	return others, nil
}

func (s *UserService) checkEmailFree(tx *gorm.DB, email string, selfID uint) error {
	var ids []uint
	q := tx.Model(&models.User{}).Where("email = ?", email)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	if err := q.Limit(1).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if len(ids) > 0 {
		return ValidationErrors{{Field: "email", Message: MsgEmailTaken}}
	}
	return nil
}

func classifyUserError(err error, op string) error {
	var verrs ValidationErrors
	var denial *DeniedError
	switch {
	case errors.As(err, &verrs), errors.As(err, &denial), errors.Is(err, ErrNotFound):
		return err
	}
	if index, ok := uniqueViolation(err); ok && index == userEmailIndex {
		return ValidationErrors{{Field: "email", Message: MsgEmailTaken}}
	}
	return fmt.Errorf("failed to %s user: %w", op, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(errs *ValidationErrors, name string) {
	switch {
	case name == "":
		errs.Add("name", MsgBlank)
	case len([]rune(name)) < 2:
		errs.Add("name", "is too short (minimum is 2 characters)")
	case htmlTagRegex.MatchString(name):
		errs.Add("name", "must not contain HTML tags")
	}
}

func validateEmail(errs *ValidationErrors, email string) {
	switch {
	case email == "":
		errs.Add("email", MsgBlank)
	case len(email) > 255:
		errs.Add("email", "is too long (maximum is 255 characters)")
	case !emailRegex.MatchString(email):
		errs.Add("email", "is invalid")
	}
}

func validatePassword(errs *ValidationErrors, password string) {
	if password == "" {
		errs.Add("password", MsgBlank)
		return
	}
	if len(password) < 6 {
		errs.Add("password", "is too short (minimum is 6 characters)")
		return
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !(upper && lower && digit && special) {
		errs.Add("password", "must include uppercase, lowercase, digit and special character")
	}
}
