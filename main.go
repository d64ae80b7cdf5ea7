package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/handlers"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/logging"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/middleware"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/services"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/storage"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logging.InitLogger()
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting TMS backend...")

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}
	utils.SetSecret(os.Getenv("JWT_SECRET"))

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoDBName == "" {
		mongoDBName = "tms"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	db := client.Database(mongoDBName)
	tasksCollection := db.Collection("tasks")
	usersCollection := db.Collection("users")
	adminsCollection := db.Collection("admins")
	departmentsCollection := db.Collection("departments")

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	attachmentStore, err := storage.NewAttachmentStore(uploadDir)
	if err != nil {
		logging.Logger.Fatalf("Event ID: STORAGE_INIT_FAILED, Description: Attachment store init failed: %v", err)
	}

	validate := validator.New()

	taskService := services.NewTaskService(tasksCollection, usersCollection, adminsCollection)
	userService := services.NewUserService(usersCollection)
	adminService := services.NewAdminService(adminsCollection, usersCollection, departmentsCollection)
	departmentService := services.NewDepartmentService(departmentsCollection)

	taskHandler := handlers.NewTaskHandler(taskService, attachmentStore, validate)
	userHandler := handlers.NewUserHandler(userService, validate)
	adminHandler := handlers.NewAdminHandler(adminService, taskService, validate)
	departmentHandler := handlers.NewDepartmentHandler(departmentService, validate)

	adminOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.Authenticate(middleware.RequireAdmin(adminService, h))
	}
	userOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.Authenticate(middleware.RequireUser(userService, h))
	}

	r := mux.NewRouter()

	// Identity
	r.HandleFunc("/admin/create", adminHandler.CreateAdmin).Methods(http.MethodPost)
	r.HandleFunc("/admin/login", adminHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/admin/logout", adminHandler.Logout).Methods(http.MethodPost)
	r.Handle("/admin/profile", adminOnly(adminHandler.GetProfile)).Methods(http.MethodGet)
	r.Handle("/admin/profile", adminOnly(adminHandler.UpdateProfile)).Methods(http.MethodPut)
	r.Handle("/admin/password", adminOnly(adminHandler.UpdatePassword)).Methods(http.MethodPut)

	r.HandleFunc("/user/create", userHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/user/login", userHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/user/logout", userHandler.Logout).Methods(http.MethodPost)
	r.Handle("/user/profile", userOnly(userHandler.GetProfile)).Methods(http.MethodGet)

	// User management
	r.Handle("/admin/users", adminOnly(adminHandler.ListUsers)).Methods(http.MethodGet)
	r.Handle("/admin/users", adminOnly(adminHandler.CreateAccount)).Methods(http.MethodPost)
	r.Handle("/admin/users/{id}", adminOnly(adminHandler.GetUserDetails)).Methods(http.MethodGet)
	r.Handle("/admin/users/{id}", adminOnly(adminHandler.DeleteUser)).Methods(http.MethodDelete)

	// Departments
	r.Handle("/admin/departments", adminOnly(departmentHandler.ListDepartments)).Methods(http.MethodGet)
	r.Handle("/admin/departments", adminOnly(departmentHandler.CreateDepartment)).Methods(http.MethodPost)
	r.Handle("/admin/departments/{id}", adminOnly(departmentHandler.GetDepartment)).Methods(http.MethodGet)

	// Admin task lifecycle
	r.Handle("/admin/task/create", adminOnly(taskHandler.CreateTask)).Methods(http.MethodPost)
	r.Handle("/admin/task/update/{id}", adminOnly(taskHandler.UpdateTask)).Methods(http.MethodPatch)
	r.Handle("/admin/task/read", adminOnly(taskHandler.ListTasks)).Methods(http.MethodGet)
	r.Handle("/admin/task/delete/{id}", adminOnly(taskHandler.DeleteTask)).Methods(http.MethodDelete)
	r.Handle("/admin/task/approve/{id}", adminOnly(taskHandler.ApproveTask)).Methods(http.MethodPatch)
	r.Handle("/admin/task/comment/attachment/{commentId}/{fileName}", adminOnly(taskHandler.DownloadAttachment)).Methods(http.MethodGet)
	r.Handle("/admin/task/comment/{id}", adminOnly(taskHandler.AddComment)).Methods(http.MethodPost)
	r.Handle("/admin/task/message/{id}", adminOnly(taskHandler.AddMessage)).Methods(http.MethodPost)
	r.Handle("/admin/task/subtask/{id}", adminOnly(taskHandler.AddSubtask)).Methods(http.MethodPost)
	r.Handle("/admin/task/{id}", adminOnly(taskHandler.GetTask)).Methods(http.MethodGet)

	// Employee task surface
	r.Handle("/user/task", userOnly(taskHandler.ListUserTasks)).Methods(http.MethodGet)
	r.Handle("/user/task/status/{id}", userOnly(taskHandler.UpdateUserTaskStatus)).Methods(http.MethodPatch)
	r.Handle("/user/task/comment/attachment/{commentId}/{fileName}", userOnly(taskHandler.DownloadAttachment)).Methods(http.MethodGet)
	r.Handle("/user/task/comment/{id}", userOnly(taskHandler.AddComment)).Methods(http.MethodPost)
	r.Handle("/user/task/message/{id}", userOnly(taskHandler.AddMessage)).Methods(http.MethodPost)
	r.Handle("/user/task/subtask/{subtaskId}", userOnly(taskHandler.UpdateSubtaskStatus)).Methods(http.MethodPatch)
	r.Handle("/user/task/{id}", userOnly(taskHandler.GetUserTask)).Methods(http.MethodGet)

	allowedOrigins := []string{"http://localhost:5173"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		allowedOrigins = strings.Split(raw, ",")
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "x-access-token"},
		AllowCredentials: true,
	}).Handler(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "4041"
	}
	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      corsHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
