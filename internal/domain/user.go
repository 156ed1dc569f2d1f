package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username"      json:"username"`
	Email     string             `bson:"email"         json:"email"`
	CreatedAt time.Time          `bson:"created_at"    json:"createdAt"`
}

// UnknownUsername is shown for ledger entries whose user no longer resolves.
const UnknownUsername = "unknown"
