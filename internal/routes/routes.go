package routes

import (
	"passport/internal/handlers"
	"passport/internal/middleware"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	authHandler *handlers.AuthHandler,
	recoveryHandler *handlers.RecoveryHandler,
) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logging)

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/login", authHandler.Login).Methods("POST")

	api.HandleFunc("/recovery/forgot", recoveryHandler.Forgot).Methods("POST")
	api.HandleFunc("/recovery/verify-code", recoveryHandler.VerifyCode).Methods("POST")
	api.HandleFunc("/recovery/reset", recoveryHandler.Reset).Methods("POST")

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth)

	protected.HandleFunc("/profile", authHandler.Profile).Methods("GET")
	protected.HandleFunc("/password/change", authHandler.ChangePassword).Methods("POST")
}
