package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles employee identity: self-registration, login and
// profile reads.
type UserService struct {
	usersCollection *mongo.Collection
}

func NewUserService(users *mongo.Collection) *UserService {
	return &UserService{usersCollection: users}
}

// RegisterUser creates an employee account and returns it with a signed
// token.
func (s *UserService) RegisterUser(ctx context.Context, name, email, password string) (*models.User, string, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, "", models.ErrMissingFields
	}

	var existing models.User
	if err := s.usersCollection.FindOne(ctx, bson.M{"email": email}).Decode(&existing); err == nil {
		return nil, "", models.ErrDuplicateUserID
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %v", err)
	}

	user := &models.User{
		ID:          primitive.NewObjectID(),
		Name:        html.EscapeString(name),
		UserID:      email,
		Email:       html.EscapeString(email),
		Password:    string(hashed),
		Role:        "employee",
		Departments: []primitive.ObjectID{},
		CreatedAt:   time.Now(),
	}
	if _, err := s.usersCollection.InsertOne(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to save user: %v", err)
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}
	return user, token, nil
}

// LoginUser authenticates by email and returns the user with a signed
// token.
func (s *UserService) LoginUser(ctx context.Context, email, password string) (*models.User, string, error) {
	var user models.User
	if err := s.usersCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "", models.ErrUserNotFound
		}
		return nil, "", fmt.Errorf("failed to look up user: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}
	return &user, token, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.usersCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %v", err)
	}
	return &user, nil
}
