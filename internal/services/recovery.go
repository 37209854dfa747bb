package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"passport/internal/config"
	"passport/internal/logger"
	"passport/internal/models"
	"passport/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("не передан код или токен")
	ErrNotFound     = errors.New("пользователь или активный запрос не найдены")
	ErrExpired      = errors.New("срок действия истёк")
	ErrRateLimited  = errors.New("превышен лимит попыток ввода кода")
	ErrMismatch     = errors.New("код или токен не совпадает")
)

// RecoveryRepo — операции хранилища, которые нужны протоколу восстановления.
// Переходы кода/токена репозиторий выполняет одним UPDATE (см. repository.UserRepository).
type RecoveryRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetCode(ctx context.Context, userID int, codeHash string, requestedAt time.Time) error
	IncrementResetAttempts(ctx context.Context, userID int) (int, error)
	IssueResetToken(ctx context.Context, userID int, token string, requestedAt time.Time) error
	CommitPassword(ctx context.Context, userID int, passwordHash string) error
}

// RecoveryService реализует восстановление пароля в три шага:
// код на почту → проверка кода с лимитом попыток → одноразовый токен → новый пароль.
type RecoveryService struct {
	repo   RecoveryRepo
	policy config.ResetPolicyConfig

	// Время и случайность инжектируются, чтобы протокол был детерминирован в тестах.
	now          func() time.Time
	randomDigits func(n int) (string, error)
}

func NewRecoveryService(repo RecoveryRepo, policy config.ResetPolicyConfig) *RecoveryService {
	return &RecoveryService{
		repo:         repo,
		policy:       policy,
		now:          time.Now,
		randomDigits: utils.RandomDigits,
	}
}

// RequestResetCode генерирует одноразовый код, сохраняет его хеш и возвращает
// код для отправки по почте вместе с пользователем-адресатом. Выдача нового
// кода обнуляет счётчик попыток и снимает незакрытый токен.
func (s *RecoveryService) RequestResetCode(ctx context.Context, email string) (string, *models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Warn("Запрос кода восстановления для неизвестного email", zap.Error(err))
		return "", nil, ErrNotFound
	}

	code, err := s.randomDigits(s.policy.CodeLength)
	if err != nil {
		logger.Log.Error("Ошибка генерации кода восстановления", zap.Error(err), zap.Int("user_id", user.ID))
		return "", nil, err
	}

	// В базе храним только хеш кода
	if err := s.repo.SetResetCode(ctx, user.ID, utils.FastHash(code), s.now()); err != nil {
		return "", nil, err
	}

	logger.Log.Info("Код восстановления выдан", zap.Int("user_id", user.ID))
	return code, user, nil
}

// VerifyResetCode проверяет код и при совпадении выдаёт одноразовый токен.
// Код снимается тем же UPDATE, которым записывается токен.
func (s *RecoveryService) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	if code == "" {
		return "", ErrInvalidInput
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Warn("Проверка кода для неизвестного email", zap.Error(err))
		return "", ErrNotFound
	}
	if user.ResetCodeHash == nil || user.ResetCodeRequestedAt == nil {
		logger.Log.Warn("Проверка кода без активного запроса", zap.Int("user_id", user.ID))
		return "", ErrNotFound
	}

	// Лимит держится до выдачи нового кода — по времени не снимается
	if user.ResetAttempts >= s.policy.MaxAttempts {
		logger.Log.Warn("Лимит попыток исчерпан", zap.Int("user_id", user.ID), zap.Int("attempts", user.ResetAttempts))
		return "", ErrRateLimited
	}

	if s.now().Sub(*user.ResetCodeRequestedAt) > s.policy.CodeTTL {
		logger.Log.Warn("Код восстановления просрочен", zap.Int("user_id", user.ID))
		return "", ErrExpired
	}

	if !utils.ConstantTimeEqual(utils.FastHash(code), *user.ResetCodeHash) {
		attempts, incErr := s.repo.IncrementResetAttempts(ctx, user.ID)
		if incErr != nil {
			logger.Log.Error("Ошибка инкремента счётчика попыток", zap.Error(incErr), zap.Int("user_id", user.ID))
			return "", incErr
		}
		logger.Log.Warn("Неверный код восстановления", zap.Int("user_id", user.ID), zap.Int("attempts", attempts))
		return "", ErrMismatch
	}

	return s.issueResetToken(ctx, user)
}

// issueResetToken выводит токен из хеша кода, метки времени и случайной
// добавки: угадать его, не пройдя проверку кода, нельзя.
func (s *RecoveryService) issueResetToken(ctx context.Context, user *models.User) (string, error) {
	random, err := s.randomDigits(s.policy.TokenRandomLength)
	if err != nil {
		logger.Log.Error("Ошибка генерации токена восстановления", zap.Error(err), zap.Int("user_id", user.ID))
		return "", err
	}

	now := s.now()
	token := utils.FastHash(*user.ResetCodeHash + strconv.FormatInt(now.UnixNano(), 10) + random)

	if err := s.repo.IssueResetToken(ctx, user.ID, token, now); err != nil {
		return "", err
	}

	logger.Log.Info("Токен восстановления выдан", zap.Int("user_id", user.ID))
	return token, nil
}

// VerifyResetToken проверяет одноразовый токен и возвращает пользователя.
func (s *RecoveryService) VerifyResetToken(ctx context.Context, email, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Warn("Проверка токена для неизвестного email", zap.Error(err))
		return nil, ErrNotFound
	}
	if user.ResetToken == nil || user.ResetTokenRequestedAt == nil {
		logger.Log.Warn("Проверка токена без активного запроса", zap.Int("user_id", user.ID))
		return nil, ErrNotFound
	}

	if s.now().Sub(*user.ResetTokenRequestedAt) > s.policy.TokenTTL {
		logger.Log.Warn("Токен восстановления просрочен", zap.Int("user_id", user.ID))
		return nil, ErrExpired
	}

	if !utils.ConstantTimeEqual(token, *user.ResetToken) {
		logger.Log.Warn("Неверный токен восстановления", zap.Int("user_id", user.ID))
		return nil, ErrMismatch
	}

	return user, nil
}

// CommitNewPassword повторно проверяет токен, хеширует новый пароль
// и закрывает запрос восстановления. Возвращает пользователя для уведомления.
func (s *RecoveryService) CommitNewPassword(ctx context.Context, email, token, newPassword string) (*models.User, error) {
	if newPassword == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.VerifyResetToken(ctx, email, token)
	if err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		logger.Log.Error("Ошибка хеширования нового пароля", zap.Error(err), zap.Int("user_id", user.ID))
		return nil, err
	}

	if err := s.repo.CommitPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	logger.Log.Info("Пароль обновлён по токену восстановления", zap.Int("user_id", user.ID))
	return user, nil
}
