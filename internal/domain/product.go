package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	TraderID    int64              `bson:"trader_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	Condition   string             `bson:"condition"`
	Price       float64            `bson:"price"`
	Quantity    int                `bson:"quantity"`
	Images      []string           `bson:"images"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}
