package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type directory[T any] interface {
	FetchAll(ctx context.Context) ([]T, error)
}

// AdminAccount is a configured administrator login.
type AdminAccount struct {
	Email    string
	Password string
	Name     string
	Role     models.UserRole
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	StudentPassword   string
	StaffPassword     string
	ParentPassword    string
	Admins            []AdminAccount
	BcryptCost        int
}

type credential struct {
	user models.UserInfo
	hash []byte
}

// AuthService resolves logins against the record collections and issues access tokens.
// Every role shares one configured password, hashed once at construction.
type AuthService struct {
	students  directory[models.Student]
	staff     directory[models.StaffProfile]
	parents   directory[models.ParentProfile]
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig

	admins     map[string]credential
	roleHashes map[models.UserRole][]byte
}

// NewAuthService constructs an AuthService and hashes the configured passwords.
func NewAuthService(students directory[models.Student], staff directory[models.StaffProfile], parents directory[models.ParentProfile], validate *validator.Validate, logger *zap.Logger, config AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	s := &AuthService{
		students:   students,
		staff:      staff,
		parents:    parents,
		validator:  validate,
		logger:     logger,
		config:     config,
		admins:     make(map[string]credential),
		roleHashes: make(map[models.UserRole][]byte),
	}

	rolePasswords := map[models.UserRole]string{
		models.RoleStudent: config.StudentPassword,
		models.RoleStaff:   config.StaffPassword,
		models.RoleParent:  config.ParentPassword,
	}
	for role, password := range rolePasswords {
		if password == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), config.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash %s password: %w", role, err)
		}
		s.roleHashes[role] = hash
	}
	for _, admin := range config.Admins {
		email := normalizeEmail(admin.Email)
		if email == "" || admin.Password == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), config.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash %s password: %w", admin.Role, err)
		}
		name := admin.Name
		if name == "" {
			name = string(admin.Role)
		}
		s.admins[email] = credential{
			user: models.UserInfo{ID: email, Email: email, Name: name, Role: admin.Role},
			hash: hash,
		}
	}
	return s, nil
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	cred, err := s.resolve(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if cred == nil || len(cred.hash) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword(cred.hash, []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	token, issuedAt, err := s.generateAccessToken(cred.user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Info("user logged in", zap.String("user_id", cred.user.ID), zap.String("role", string(cred.user.Role)))

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        cred.user,
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// resolve looks the email up among admins, students, staff and parents in that order.
func (s *AuthService) resolve(ctx context.Context, email string) (*credential, error) {
	if admin, ok := s.admins[email]; ok {
		return &admin, nil
	}

	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	for _, student := range students {
		if normalizeEmail(student.Email) == email {
			return s.roleCredential(models.UserInfo{ID: student.ID, Email: email, Name: student.Name, Role: models.RoleStudent}), nil
		}
	}

	staff, err := s.staff.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	for _, member := range staff {
		if normalizeEmail(member.Email) == email {
			return s.roleCredential(models.UserInfo{ID: member.ID, Email: email, Name: member.Name, Role: models.RoleStaff}), nil
		}
	}

	parents, err := s.parents.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parents")
	}
	for _, parent := range parents {
		if normalizeEmail(parent.Email) == email {
			return s.roleCredential(models.UserInfo{ID: parent.ID, Email: email, Name: parent.Name, Role: models.RoleParent}), nil
		}
	}
	return nil, nil
}

func (s *AuthService) roleCredential(user models.UserInfo) *credential {
	return &credential{user: user, hash: s.roleHashes[user.Role]}
}

func (s *AuthService) generateAccessToken(user models.UserInfo) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
