package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"passport/internal/models"
	"passport/internal/utils"
)

// Мок-репозиторий (заглушка)
type mockUserRepo struct {
	users    map[string]*models.User // ключ — нормализованный email
	lastUser *models.User
}

func (m *mockUserRepo) IsUsernameTaken(_ context.Context, username string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) IsEmailTaken(_ context.Context, email string) (bool, error) {
	_, exists := m.users[strings.ToLower(strings.TrimSpace(email))]
	return exists, nil
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *models.User) error {
	user.ID = len(m.users) + 1
	m.users[user.Email] = user
	m.lastUser = user
	return nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return u, nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("no rows in result set")
}

func (m *mockUserRepo) UpdateUserPassword(_ context.Context, userID int, passwordHash string) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return errors.New("no rows in result set")
}

func TestRegisterUser(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	service := NewAuthService(repo)

	user := &models.User{
		Username: "testuser",
		Email:    "Test@Example.com",
		FullName: "Тестовый Пользователь",
	}

	err := service.RegisterUser(context.Background(), user, "секретный-пароль")
	if err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}

	if repo.lastUser == nil || repo.lastUser.PasswordHash == "" {
		t.Fatal("пароль не захеширован или пользователь не сохранён")
	}
	if repo.lastUser.Email != "test@example.com" {
		t.Fatalf("email должен быть нормализован, сейчас %q", repo.lastUser.Email)
	}
	if repo.lastUser.PasswordHash == "секретный-пароль" {
		t.Fatal("пароль сохранён открытым текстом")
	}
}

func TestLoginUser_Success(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	service := NewAuthService(repo)

	hashed, _ := utils.HashPassword("correct")
	repo.users["user@example.com"] = &models.User{
		ID:           1,
		Username:     "testuser",
		Email:        "user@example.com",
		PasswordHash: hashed,
		Role:         "user",
	}

	// Email ищется без учёта регистра и пробелов
	access, user, err := service.LoginUser(context.Background(), "  User@Example.com ", "correct", "mysecret", 15*time.Minute)
	if err != nil {
		t.Fatalf("ошибка логина: %v", err)
	}
	if access == "" {
		t.Fatal("токен не сгенерирован")
	}
	if user == nil || user.ID != 1 {
		t.Fatal("пользователь не возвращён")
	}
}

func TestLoginUser_GenericFailure(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	service := NewAuthService(repo)

	hashed, _ := utils.HashPassword("correct")
	repo.users["user@example.com"] = &models.User{
		ID:           1,
		Email:        "user@example.com",
		PasswordHash: hashed,
	}

	// Неверный пароль и несуществующий email дают одну и ту же ошибку
	_, _, errWrongPass := service.LoginUser(context.Background(), "user@example.com", "wrong", "secret", time.Minute)
	_, _, errNoUser := service.LoginUser(context.Background(), "absent@example.com", "x", "secret", time.Minute)

	if !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Fatalf("неверный пароль: ожидалась ErrInvalidCredentials, получено %v", errWrongPass)
	}
	if !errors.Is(errNoUser, ErrInvalidCredentials) {
		t.Fatalf("неизвестный email: ожидалась ErrInvalidCredentials, получено %v", errNoUser)
	}
}

func TestChangePassword(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	service := NewAuthService(repo)

	hashed, _ := utils.HashPassword("старый-пароль")
	repo.users["user@example.com"] = &models.User{
		ID:           1,
		Email:        "user@example.com",
		PasswordHash: hashed,
	}

	if err := service.ChangePassword(context.Background(), 1, "не тот пароль", "новый-пароль"); err == nil {
		t.Fatal("ожидалась ошибка при неверном старом пароле")
	}

	if err := service.ChangePassword(context.Background(), 1, "старый-пароль", "новый-пароль"); err != nil {
		t.Fatalf("ошибка смены пароля: %v", err)
	}
	if !utils.CheckPasswordHash("новый-пароль", repo.users["user@example.com"].PasswordHash) {
		t.Fatal("новый пароль должен проходить проверку")
	}
}
