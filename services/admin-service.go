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

// AdminService handles admin identity and the admin-side user management.
type AdminService struct {
	adminsCollection      *mongo.Collection
	usersCollection       *mongo.Collection
	departmentsCollection *mongo.Collection
}

func NewAdminService(admins, users, departments *mongo.Collection) *AdminService {
	return &AdminService{
		adminsCollection:      admins,
		usersCollection:       users,
		departmentsCollection: departments,
	}
}

// CreateAdmin registers an admin account and returns it with a signed
// token.
func (s *AdminService) CreateAdmin(ctx context.Context, name, userid, password string, department *primitive.ObjectID) (*models.Admin, string, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(userid) == "" || password == "" {
		return nil, "", models.ErrMissingFields
	}

	var existing models.Admin
	if err := s.adminsCollection.FindOne(ctx, bson.M{"userid": userid}).Decode(&existing); err == nil {
		return nil, "", models.ErrDuplicateUserID
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %v", err)
	}

	admin := &models.Admin{
		ID:         primitive.NewObjectID(),
		Name:       html.EscapeString(name),
		UserID:     html.EscapeString(userid),
		Password:   string(hashed),
		Role:       "admin",
		Department: department,
		CreatedAt:  time.Now(),
	}
	if _, err := s.adminsCollection.InsertOne(ctx, admin); err != nil {
		return nil, "", fmt.Errorf("failed to save admin: %v", err)
	}

	token, err := utils.GenerateToken(admin.ID.Hex(), admin.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}
	return admin, token, nil
}

// LoginAdmin authenticates by userid and returns the admin with a signed
// token.
func (s *AdminService) LoginAdmin(ctx context.Context, userid, password string) (*models.Admin, string, error) {
	var admin models.Admin
	if err := s.adminsCollection.FindOne(ctx, bson.M{"userid": userid}).Decode(&admin); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "", models.ErrAdminNotFound
		}
		return nil, "", fmt.Errorf("failed to look up admin: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(admin.ID.Hex(), admin.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}
	return &admin, token, nil
}

func (s *AdminService) GetAdminByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	var admin models.Admin
	if err := s.adminsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&admin); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to look up admin: %v", err)
	}
	return &admin, nil
}

// UpdateProfile patches the admin's name, userid and email. A userid
// already held by another admin is rejected.
func (s *AdminService) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, userid, email string) (*models.Admin, error) {
	admin, err := s.GetAdminByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if userid != "" && userid != admin.UserID {
		var existing models.Admin
		if err := s.adminsCollection.FindOne(ctx, bson.M{"userid": userid}).Decode(&existing); err == nil {
			return nil, models.ErrDuplicateUserID
		}
		admin.UserID = html.EscapeString(userid)
	}
	if name != "" {
		admin.Name = html.EscapeString(name)
	}
	if email != "" {
		admin.Email = html.EscapeString(email)
	}

	if _, err := s.adminsCollection.ReplaceOne(ctx, bson.M{"_id": id}, admin); err != nil {
		return nil, fmt.Errorf("failed to update admin: %v", err)
	}
	return admin, nil
}

// UpdatePassword verifies the old password before storing the new hash.
func (s *AdminService) UpdatePassword(ctx context.Context, id primitive.ObjectID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return models.ErrMissingFields
	}
	admin, err := s.GetAdminByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(oldPassword)); err != nil {
		return models.ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	if _, err := s.adminsCollection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": string(hashed)}}); err != nil {
		return fmt.Errorf("failed to update password: %v", err)
	}
	return nil
}

// ListUsers returns employees, optionally filtered by department
// membership.
func (s *AdminService) ListUsers(ctx context.Context, department *primitive.ObjectID) ([]*models.User, error) {
	filter := bson.M{}
	if department != nil {
		filter["departments"] = *department
	}

	cursor, err := s.usersCollection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %v", err)
		}
		users = append(users, &user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}
	return users, nil
}

func (s *AdminService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.usersCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %v", err)
	}
	return &user, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.usersCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %v", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// CreateAccount creates an admin or employee account on an admin's behalf,
// dispatched on the requested role. Department references are validated
// before anything is written.
func (s *AdminService) CreateAccount(ctx context.Context, name, email, userid, password, role string, departments []primitive.ObjectID) (interface{}, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(userid) == "" || password == "" {
		return nil, models.ErrMissingFields
	}
	for _, deptID := range departments {
		count, err := s.departmentsCollection.CountDocuments(ctx, bson.M{"_id": deptID})
		if err != nil {
			return nil, fmt.Errorf("failed to verify department: %v", err)
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: %s", models.ErrDepartmentNotFound, deptID.Hex())
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	if role == "admin" {
		var existing models.Admin
		if err := s.adminsCollection.FindOne(ctx, bson.M{"userid": userid}).Decode(&existing); err == nil {
			return nil, models.ErrDuplicateUserID
		}
		admin := &models.Admin{
			ID:        primitive.NewObjectID(),
			Name:      html.EscapeString(name),
			UserID:    html.EscapeString(userid),
			Email:     html.EscapeString(email),
			Password:  string(hashed),
			Role:      "admin",
			CreatedAt: time.Now(),
		}
		if len(departments) > 0 {
			admin.Department = &departments[0]
		}
		if _, err := s.adminsCollection.InsertOne(ctx, admin); err != nil {
			return nil, fmt.Errorf("failed to save admin: %v", err)
		}
		return admin, nil
	}

	var existing models.User
	if err := s.usersCollection.FindOne(ctx, bson.M{"userid": userid}).Decode(&existing); err == nil {
		return nil, models.ErrDuplicateUserID
	}
	if departments == nil {
		departments = []primitive.ObjectID{}
	}
	user := &models.User{
		ID:          primitive.NewObjectID(),
		Name:        html.EscapeString(name),
		UserID:      html.EscapeString(userid),
		Email:       html.EscapeString(email),
		Password:    string(hashed),
		Role:        "employee",
		Departments: departments,
		CreatedAt:   time.Now(),
	}
	if _, err := s.usersCollection.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %v", err)
	}
	return user, nil
}
