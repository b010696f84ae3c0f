package repository

import (
	"context"
	"regexp"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productCollection = "products"

type ProductRepositoryImpl struct {
	db *mongo.Database
}

func CreateProductRepository(db *mongo.Database) ProductRepository {
	return &ProductRepositoryImpl{db: db}
}

func (r *ProductRepositoryImpl) AddProduct(ctx context.Context, data domain.Product) (id string, err error) {
	result, err := r.db.Collection(productCollection).InsertOne(ctx, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddProduct").Msg("")
		return "", errs.ErrInternalServer
	}

	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

// GetProductByID returns a zero product for unknown or malformed ids.
func (r *ProductRepositoryImpl) GetProductByID(ctx context.Context, id string) (data domain.Product, err error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return data, nil
	}

	err = r.db.Collection(productCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&data)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return data, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProductByID").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

func productQuery(filter dto.ProductFilter) bson.M {
	query := bson.M{}

	if filter.Q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Q), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	if filter.Category != "" {
		query["category"] = filter.Category
	}

	if filter.Condition != "" {
		query["condition"] = filter.Condition
	}

	if filter.TraderID != 0 {
		query["trader_id"] = filter.TraderID
	}

	price := bson.M{}
	if filter.MinPrice > 0 {
		price["$gte"] = filter.MinPrice
	}
	if filter.MaxPrice > 0 {
		price["$lte"] = filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	return query
}

func productSort(sort string) bson.D {
	switch sort {
	case "price_asc":
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case "price_desc":
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func (r *ProductRepositoryImpl) GetProducts(ctx context.Context, filter dto.ProductFilter) (data []domain.Product, err error) {
	findOptions := options.Find()
	findOptions.SetSort(productSort(filter.Sort))
	if filter.Limit != 0 && filter.Page != 0 {
		findOptions.SetLimit(int64(filter.Limit))
		findOptions.SetSkip(int64((filter.Page - 1) * filter.Limit))
	}

	cursor, err := r.db.Collection(productCollection).Find(ctx, productQuery(filter), findOptions)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProducts").Msg("")
		return nil, errs.ErrInternalServer
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &data); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProducts").Msg("")
		return nil, errs.ErrInternalServer
	}

	return data, nil
}

func (r *ProductRepositoryImpl) CountProducts(ctx context.Context, filter dto.ProductFilter) (count int64, err error) {
	count, err = r.db.Collection(productCollection).CountDocuments(ctx, productQuery(filter))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CountProducts").Msg("")
		return 0, errs.ErrInternalServer
	}

	return
}

func (r *ProductRepositoryImpl) AdjustStock(ctx context.Context, id string, delta int) (updated bool, err error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	filter := bson.M{"_id": objectID}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}

	result, err := r.db.Collection(productCollection).UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"quantity": delta}})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AdjustStock").Msg("")
		return false, errs.ErrInternalServer
	}

	return result.ModifiedCount > 0, nil
}
