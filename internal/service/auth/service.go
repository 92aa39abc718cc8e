package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/util"
	"foundermatch/pkg/apperr"
)

// UserStore 用户存储
type UserStore interface {
	Create(ctx context.Context, u *model.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type Service struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Register 创建用户；admin 账号不能自助注册
func (s *Service) Register(ctx context.Context, email, password, name string, role model.Role) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email %q", email)
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	if role != model.RoleEntrepreneur && role != model.RoleDeveloper {
		return nil, apperr.Validation("role must be entrepreneur or developer")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         role,
		CreatedAt:    s.now(),
	}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id

	s.logger.Info("user registered", zap.Int64("user_id", id), zap.String("role", string(role)))
	return u, nil
}

// Login 校验凭证并签发 JWT；邮箱不存在和密码错误返回同样的错误
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return "", nil, apperr.New(apperr.CodeUnauthorized, "invalid email or password")
		}
		return "", nil, err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, apperr.New(apperr.CodeUnauthorized, "invalid email or password")
	}

	token, err := util.GenerateJWT(u.ID, string(u.Role), s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Me 返回当前用户
func (s *Service) Me(ctx context.Context, actor model.Actor) (*model.User, error) {
	return s.users.GetByID(ctx, actor.UserID)
}
