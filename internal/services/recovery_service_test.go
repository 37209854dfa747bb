package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"passport/internal/config"
	"passport/internal/logger"
	"passport/internal/models"
	"passport/internal/utils"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	m.Run()
}

// Мок-репозиторий: один пользователь, операции повторяют семантику SQL-переходов
type mockRecoveryRepo struct {
	user *models.User
}

func (m *mockRecoveryRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if m.user == nil || m.user.Email != normalized {
		return nil, errors.New("no rows in result set")
	}
	u := *m.user
	return &u, nil
}

func (m *mockRecoveryRepo) SetResetCode(_ context.Context, userID int, codeHash string, requestedAt time.Time) error {
	m.user.ResetCodeHash = &codeHash
	m.user.ResetCodeRequestedAt = &requestedAt
	m.user.ResetAttempts = 0
	m.user.ResetToken = nil
	m.user.ResetTokenRequestedAt = nil
	return nil
}

func (m *mockRecoveryRepo) IncrementResetAttempts(_ context.Context, userID int) (int, error) {
	m.user.ResetAttempts++
	return m.user.ResetAttempts, nil
}

func (m *mockRecoveryRepo) IssueResetToken(_ context.Context, userID int, token string, requestedAt time.Time) error {
	m.user.ResetToken = &token
	m.user.ResetTokenRequestedAt = &requestedAt
	m.user.ResetCodeHash = nil
	m.user.ResetCodeRequestedAt = nil
	return nil
}

func (m *mockRecoveryRepo) CommitPassword(_ context.Context, userID int, passwordHash string) error {
	m.user.PasswordHash = passwordHash
	m.user.ResetToken = nil
	m.user.ResetTokenRequestedAt = nil
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testPolicy() config.ResetPolicyConfig {
	return config.ResetPolicyConfig{
		CodeLength:        8,
		MaxAttempts:       5,
		CodeTTL:           5 * time.Minute,
		TokenTTL:          5 * time.Minute,
		TokenRandomLength: 30,
	}
}

func newTestService(repo *mockRecoveryRepo, policy config.ResetPolicyConfig, clk *fakeClock, codes ...string) *RecoveryService {
	s := NewRecoveryService(repo, policy)
	s.now = clk.Now
	if len(codes) > 0 {
		queue := append([]string{}, codes...)
		s.randomDigits = func(n int) (string, error) {
			next := queue[0]
			if len(queue) > 1 {
				queue = queue[1:]
			}
			return next, nil
		}
	}
	return s
}

func testUser() *models.User {
	return &models.User{
		ID:       1,
		Username: "testuser",
		Email:    "user@example.com",
		FullName: "Тестовый Пользователь",
	}
}

func TestRequestResetCode(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	staleToken := "старый-токен"
	repo.user.ResetToken = &staleToken
	repo.user.ResetAttempts = 3

	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, testPolicy(), clk, "12345678")

	code, user, err := svc.RequestResetCode(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("ошибка выдачи кода: %v", err)
	}
	if code != "12345678" {
		t.Fatalf("ожидался код 12345678, получен %q", code)
	}
	if user == nil || user.ID != 1 {
		t.Fatal("не возвращён пользователь-адресат")
	}
	if repo.user.ResetCodeHash == nil || *repo.user.ResetCodeHash != utils.FastHash("12345678") {
		t.Fatal("в хранилище должен лежать хеш кода, не сам код")
	}
	if repo.user.ResetAttempts != 0 {
		t.Fatalf("счётчик попыток должен обнулиться, сейчас %d", repo.user.ResetAttempts)
	}
	if repo.user.ResetToken != nil {
		t.Fatal("выдача кода должна снимать незакрытый токен")
	}
}

func TestRequestResetCode_UnknownEmail(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	clk := &fakeClock{t: time.Now()}
	svc := newTestService(repo, testPolicy(), clk, "12345678")

	if _, _, err := svc.RequestResetCode(context.Background(), "absent@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestVerifyResetCode_GuessLimit(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	policy := testPolicy()
	policy.MaxAttempts = 3

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: t0}
	svc := newTestService(repo, policy, clk, "12345678")

	if _, _, err := svc.RequestResetCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка выдачи кода: %v", err)
	}

	// Три неверных попытки: каждая — Mismatch, счётчик 1, 2, 3
	for i := 1; i <= 3; i++ {
		clk.Advance(time.Second)
		_, err := svc.VerifyResetCode(context.Background(), "user@example.com", "00000000")
		if !errors.Is(err, ErrMismatch) {
			t.Fatalf("попытка %d: ожидалась ErrMismatch, получено %v", i, err)
		}
		if repo.user.ResetAttempts != i {
			t.Fatalf("попытка %d: счётчик должен быть %d, сейчас %d", i, i, repo.user.ResetAttempts)
		}
	}

	// Четвёртая попытка с ПРАВИЛЬНЫМ кодом — лимит уже исчерпан
	clk.Advance(time.Second)
	if _, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("ожидалась ErrRateLimited, получено %v", err)
	}

	// Лимит снимается только новым кодом
	if _, _, err := svc.RequestResetCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка повторной выдачи кода: %v", err)
	}
	if repo.user.ResetAttempts != 0 {
		t.Fatal("новый код должен обнулить счётчик")
	}
	if _, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678"); err != nil {
		t.Fatalf("после нового кода проверка должна пройти: %v", err)
	}
}

func TestVerifyResetCode_Expired(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	policy := testPolicy()
	policy.CodeTTL = 300 * time.Second

	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, policy, clk, "12345678")

	if _, _, err := svc.RequestResetCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка выдачи кода: %v", err)
	}

	clk.Advance(301 * time.Second)
	if _, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678"); !errors.Is(err, ErrExpired) {
		t.Fatalf("ожидалась ErrExpired, получено %v", err)
	}
}

func TestVerifyResetCode_EmptyCode(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	svc := newTestService(repo, testPolicy(), &fakeClock{t: time.Now()})

	if _, err := svc.VerifyResetCode(context.Background(), "user@example.com", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ожидалась ErrInvalidInput, получено %v", err)
	}
}

func TestVerifyResetCode_NoPendingRequest(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	svc := newTestService(repo, testPolicy(), &fakeClock{t: time.Now()})

	if _, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestVerifyResetCode_TokenDerivation(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: t0}
	random := "123456789012345678901234567890"
	svc := newTestService(repo, testPolicy(), clk, "12345678", random)

	if _, _, err := svc.RequestResetCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка выдачи кода: %v", err)
	}

	clk.Advance(10 * time.Second)
	token, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678")
	if err != nil {
		t.Fatalf("ошибка проверки кода: %v", err)
	}

	// Вывод токена детерминирован при фиксированных часах и случайности
	codeHash := utils.FastHash("12345678")
	want := utils.FastHash(codeHash + strconv.FormatInt(clk.t.UnixNano(), 10) + random)
	if token != want {
		t.Fatalf("токен выведен неверно:\n got  %s\n want %s", token, want)
	}

	// Код снят, токен выдан — одновременно активно только одно из двух
	if repo.user.ResetCodeHash != nil {
		t.Fatal("код должен быть снят при выдаче токена")
	}
	if repo.user.ResetToken == nil || *repo.user.ResetToken != token {
		t.Fatal("токен должен быть сохранён")
	}
}

func TestCommitNewPassword_RoundTrip(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: t0}
	svc := newTestService(repo, testPolicy(), clk, "12345678")

	if _, _, err := svc.RequestResetCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка выдачи кода: %v", err)
	}

	clk.Advance(10 * time.Second)
	token, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678")
	if err != nil {
		t.Fatalf("ошибка проверки кода: %v", err)
	}

	clk.Advance(time.Second)
	user, err := svc.CommitNewPassword(context.Background(), "user@example.com", token, "новый-пароль-123")
	if err != nil {
		t.Fatalf("ошибка фиксации пароля: %v", err)
	}
	if user == nil || user.ID != 1 {
		t.Fatal("не возвращён пользователь после смены пароля")
	}

	if !utils.CheckPasswordHash("новый-пароль-123", repo.user.PasswordHash) {
		t.Fatal("новый пароль должен проходить проверку bcrypt")
	}
	if repo.user.ResetToken != nil {
		t.Fatal("токен должен быть закрыт после смены пароля")
	}

	// Повторное использование того же токена — NotFound
	if _, err := svc.CommitNewPassword(context.Background(), "user@example.com", token, "ещё-один-пароль"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("повторный токен: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestVerifyResetToken_Expired(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	policy := testPolicy()
	policy.TokenTTL = 5 * time.Minute

	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, policy, clk, "12345678")

	if _, _, err := svc.RequestResetCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка выдачи кода: %v", err)
	}
	token, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678")
	if err != nil {
		t.Fatalf("ошибка проверки кода: %v", err)
	}

	clk.Advance(5*time.Minute + time.Second)
	if _, err := svc.VerifyResetToken(context.Background(), "user@example.com", token); !errors.Is(err, ErrExpired) {
		t.Fatalf("ожидалась ErrExpired, получено %v", err)
	}
}

func TestVerifyResetToken_Mismatch(t *testing.T) {
	repo := &mockRecoveryRepo{user: testUser()}
	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, testPolicy(), clk, "12345678")

	if _, _, err := svc.RequestResetCode(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("ошибка выдачи кода: %v", err)
	}
	if _, err := svc.VerifyResetCode(context.Background(), "user@example.com", "12345678"); err != nil {
		t.Fatalf("ошибка проверки кода: %v", err)
	}

	if _, err := svc.VerifyResetToken(context.Background(), "user@example.com", "не тот токен"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("ожидалась ErrMismatch, получено %v", err)
	}
	if _, err := svc.VerifyResetToken(context.Background(), "user@example.com", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("ожидалась ErrInvalidInput, получено %v", err)
	}
}
