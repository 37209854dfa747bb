package app

import (
	"strconv"

	"passport/internal/config"
	"passport/internal/db"
	"passport/internal/handlers"
	"passport/internal/repository"
	"passport/internal/routes"
	"passport/internal/services"

	"github.com/gorilla/mux"
)

func InitApp(cfg *config.Config) (*mux.Router, error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := cfg.ResetPolicy()
	if err != nil {
		return nil, err
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)

	// Сервисы
	authService := services.NewAuthService(userRepo)
	recoveryService := services.NewRecoveryService(userRepo, policy)
	emailService := services.NewEmailService(cfg)

	// Хендлеры
	codeTTLMin, _ := strconv.Atoi(cfg.ResetCodeTTLMin)
	authHandler := handlers.NewAuthHandler(authService)
	recoveryHandler := handlers.NewRecoveryHandler(recoveryService, codeTTLMin)

	// Запуск воркеров email
	for i := 0; i < 3; i++ {
		services.StartEmailWorker(emailService)
	}

	// Маршруты
	router := mux.NewRouter()
	routes.InitRoutes(router, authHandler, recoveryHandler)

	return router, nil
}
