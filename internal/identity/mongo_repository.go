package identity

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/huonghan/storefront/internal/apperror"
)

const usersCollection = "users"

type addressDocument struct {
	ID        string `bson:"id,omitempty"`
	FullName  string `bson:"fullName"`
	Phone     string `bson:"phone"`
	Line1     string `bson:"line1"`
	City      string `bson:"city"`
	District  string `bson:"district"`
	Ward      string `bson:"ward"`
	IsDefault bool   `bson:"isDefault"`
}

type userDocument struct {
	ID             string            `bson:"_id"`
	Email          string            `bson:"email"`
	PasswordHash   string            `bson:"passwordHash,omitempty"`
	FullName       string            `bson:"fullName"`
	Role           string            `bson:"role"`
	Provider       string            `bson:"provider"`
	ProviderID     string            `bson:"providerId,omitempty"`
	IsGuest        bool              `bson:"isGuest"`
	Addresses      []addressDocument `bson:"addresses"`
	DefaultAddress *addressDocument  `bson:"defaultAddress"`
	CreatedAt      time.Time         `bson:"createdAt"`
	UpdatedAt      time.Time         `bson:"updatedAt"`
}

// MongoRepository stores each user as one document with embedded addresses.
type MongoRepository struct {
	users *mongo.Collection
}

// NewMongoRepository builds a Mongo-backed identity repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return apperror.Persistence(err)
}

// Create inserts a new user document.
func (r *MongoRepository) Create(ctx context.Context, user User) error {
	_, err := r.users.InsertOne(ctx, toDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return apperror.Persistence(err)
}

// FindByID fetches a user by identifier.
func (r *MongoRepository) FindByID(ctx context.Context, id string) (User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByEmail fetches a user by normalized email.
func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

// Save replaces the whole user document.
func (r *MongoRepository) Save(ctx context.Context, user User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, toDocument(user))
	if err != nil {
		return apperror.Persistence(err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, apperror.Persistence(err)
	}
	return fromDocument(doc), nil
}

func toDocument(u User) userDocument {
	doc := userDocument{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		Role:         string(u.Role),
		Provider:     string(u.Provider),
		ProviderID:   u.ProviderID,
		IsGuest:      u.IsGuest,
		Addresses:    make([]addressDocument, 0, len(u.Addresses)),
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	for _, a := range u.Addresses {
		doc.Addresses = append(doc.Addresses, addressDocument(a))
	}
	if u.DefaultAddress != nil {
		snapshot := addressDocument(*u.DefaultAddress)
		doc.DefaultAddress = &snapshot
	}
	return doc
}

func fromDocument(doc userDocument) User {
	u := User{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		FullName:     doc.FullName,
		Role:         Role(doc.Role),
		Provider:     Provider(doc.Provider),
		ProviderID:   doc.ProviderID,
		IsGuest:      doc.IsGuest,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
	for _, a := range doc.Addresses {
		u.Addresses = append(u.Addresses, Address(a))
	}
	if doc.DefaultAddress != nil {
		snapshot := Address(*doc.DefaultAddress)
		u.DefaultAddress = &snapshot
	}
	return u
}
