package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"passport/internal/logger"
	"passport/internal/models"
	"passport/internal/utils"

	"go.uber.org/zap"
)

// ErrInvalidCredentials — единая ошибка логина: не раскрываем,
// что именно не совпало — email или пароль.
var ErrInvalidCredentials = errors.New("неверный email или пароль")

type AuthService struct {
	repo UserRepo
}

func NewAuthService(repo UserRepo) *AuthService {
	return &AuthService{repo: repo}
}

type UserRepo interface {
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID int, passwordHash string) error
}

func (s *AuthService) RegisterUser(ctx context.Context, input *models.User, plainPassword string) error {
	logger.Log.Info("Регистрация пользователя (service)", zap.String("username", input.Username))
	if exists, err := s.repo.IsUsernameTaken(ctx, input.Username); exists || err != nil {
		if err != nil {
			logger.Log.Error("Ошибка проверки username", zap.Error(err))
		}
		return errors.New("имя пользователя уже занято")
	}
	if exists, err := s.repo.IsEmailTaken(ctx, input.Email); exists || err != nil {
		if err != nil {
			logger.Log.Error("Ошибка проверки email", zap.Error(err))
		}
		return errors.New("адрес электронной почты уже зарегистрирован")
	}

	hashed, err := utils.HashPassword(plainPassword)
	if err != nil {
		logger.Log.Error("Ошибка хеширования пароля", zap.Error(err))
		return err
	}

	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.PasswordHash = hashed
	input.Role = "user"

	if err := s.repo.CreateUser(ctx, input); err != nil {
		logger.Log.Error("Ошибка создания пользователя", zap.Error(err))
		return err
	}
	logger.Log.Info("Пользователь зарегистрирован (service)", zap.String("username", input.Username))
	return nil
}

// LoginUser проверяет email и пароль и выдаёт сессионный JWT.
// Любая причина отказа — одна и та же ErrInvalidCredentials.
func (s *AuthService) LoginUser(
	ctx context.Context,
	email, password, jwtSecret string,
	accessTTL time.Duration,
) (string, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	logger.Log.Info("Попытка входа (service)")

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Warn("Пользователь не найден (service)", zap.Error(err))
		return "", nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		logger.Log.Warn("Неверный пароль (service)", zap.Int("user_id", user.ID))
		return "", nil, ErrInvalidCredentials
	}

	accessToken, err := utils.GenerateToken(jwtSecret, user.ID, user.Role, accessTTL)
	if err != nil {
		logger.Log.Error("Ошибка генерации access-токена", zap.Error(err))
		return "", nil, err
	}

	logger.Log.Info("Вход выполнен (service)", zap.Int("user_id", user.ID))
	return accessToken, user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		logger.Log.Warn("Пользователь не найден по ID (service)", zap.Int("user_id", id), zap.Error(err))
	}
	return user, err
}

// ChangePassword меняет пароль для авторизованного пользователя по старому паролю.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error {
	logger.Log.Info("Смена пароля (авторизованный пользователь)", zap.Int("user_id", userID))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Log.Warn("Пользователь не найден при смене пароля", zap.Int("user_id", userID), zap.Error(err))
		return errors.New("пользователь не найден")
	}

	if !utils.CheckPasswordHash(oldPassword, user.PasswordHash) {
		logger.Log.Warn("Старый пароль не совпадает", zap.Int("user_id", userID))
		return errors.New("старый пароль неверный")
	}

	newHash, err := utils.HashPassword(newPassword)
	if err != nil {
		logger.Log.Error("Ошибка генерации нового хеша пароля", zap.Error(err), zap.Int("user_id", userID))
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, newHash); err != nil {
		logger.Log.Error("Ошибка обновления пароля пользователя", zap.Error(err), zap.Int("user_id", userID))
		return err
	}

	logger.Log.Info("Пароль успешно изменён", zap.Int("user_id", userID))
	return nil
}
