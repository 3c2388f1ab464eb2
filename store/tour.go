package store

import (
	"context"
	"time"

	"github.com/robertfedus/natours/apperror"
	"github.com/robertfedus/natours/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const tourNotFoundMsg = "No tour found with that ID"

// secretTourExclusion hides secret tours from every read path. It is
// prepended ahead of any caller-supplied filter so it cannot be bypassed by
// query input; only the administrative path opts out.
var secretTourExclusion = bson.M{"secretTour": bson.M{"$ne": true}}

// visibleFilter wraps filter with the secret-tour exclusion. With
// includeSecret (admin path) the filter passes through untouched.
func visibleFilter(filter bson.M, includeSecret bool) bson.M {
	if includeSecret {
		return filter
	}
	return bson.M{"$and": bson.A{secretTourExclusion, filter}}
}

// ListTours runs a translated list query. A page past the end of the
// collection is an empty result, not an error.
func (db *DB) ListTours(ctx context.Context, q ListQuery, includeSecret bool) ([]models.Tour, error) {
	opts := options.Find().
		SetSort(q.Sort).
		SetProjection(q.Projection).
		SetSkip(q.Skip).
		SetLimit(q.Limit)

	cur, err := db.Tours().Find(ctx, visibleFilter(q.Filter, includeSecret), opts)
	if err != nil {
		return nil, apperror.Operation("tours.find", err)
	}
	defer cur.Close(ctx)

	tours := []models.Tour{}
	if err := cur.All(ctx, &tours); err != nil {
		return nil, apperror.Operation("tours.decode", err)
	}
	for i := range tours {
		tours[i].ComputeDerived()
	}
	return tours, nil
}

func (db *DB) TourByID(ctx context.Context, id primitive.ObjectID, includeSecret bool) (*models.Tour, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "createdAt", Value: 0}})

	var tour models.Tour
	err := db.Tours().FindOne(ctx, visibleFilter(bson.M{"_id": id}, includeSecret), opts).Decode(&tour)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound(tourNotFoundMsg)
	}
	if err != nil {
		return nil, apperror.Operation("tours.findOne", err)
	}
	tour.ComputeDerived()
	return &tour, nil
}

func (db *DB) CreateTour(ctx context.Context, tour *models.Tour) (*models.Tour, error) {
	if err := tour.ValidateNew(); err != nil {
		return nil, err
	}
	res, err := db.Tours().InsertOne(ctx, tour)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Validation("name", "A tour with that name already exists")
		}
		return nil, apperror.Operation("tours.insert", err)
	}
	tour.ID = res.InsertedID.(primitive.ObjectID)
	tour.ComputeDerived()
	return tour, nil
}

// UpdateTour applies a partial update and returns the updated document.
// Supplied fields are re-validated; the discount/price relation is a
// creation-time rule only.
func (db *DB) UpdateTour(ctx context.Context, id primitive.ObjectID, update *models.TourUpdate, includeSecret bool) (*models.Tour, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	set := updateFields(update)
	if len(set) == 0 {
		return db.TourByID(ctx, id, includeSecret)
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "createdAt", Value: 0}})

	var tour models.Tour
	err := db.Tours().FindOneAndUpdate(ctx, visibleFilter(bson.M{"_id": id}, includeSecret), bson.M{"$set": set}, opts).Decode(&tour)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound(tourNotFoundMsg)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Validation("name", "A tour with that name already exists")
		}
		return nil, apperror.Operation("tours.update", err)
	}
	tour.ComputeDerived()
	return &tour, nil
}

func updateFields(u *models.TourUpdate) bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Duration != nil {
		set["duration"] = *u.Duration
	}
	if u.MaxGroupSize != nil {
		set["maxGroupSize"] = *u.MaxGroupSize
	}
	if u.Difficulty != nil {
		set["difficulty"] = *u.Difficulty
	}
	if u.RatingsAverage != nil {
		set["ratingsAverage"] = *u.RatingsAverage
	}
	if u.RatingsQuantity != nil {
		set["ratingsQuantity"] = *u.RatingsQuantity
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.PriceDiscount != nil {
		set["priceDiscount"] = *u.PriceDiscount
	}
	if u.Summary != nil {
		set["summary"] = *u.Summary
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.ImageCover != nil {
		set["imageCover"] = *u.ImageCover
	}
	if u.Images != nil {
		set["images"] = *u.Images
	}
	if u.StartDates != nil {
		set["startDates"] = *u.StartDates
	}
	if u.SecretTour != nil {
		set["secretTour"] = *u.SecretTour
	}
	return set
}

// DeleteTour removes a tour by ID. A missing ID is NotFound, distinct from
// success.
func (db *DB) DeleteTour(ctx context.Context, id primitive.ObjectID, includeSecret bool) error {
	err := db.Tours().FindOneAndDelete(ctx, visibleFilter(bson.M{"_id": id}, includeSecret)).Err()
	if err == mongo.ErrNoDocuments {
		return apperror.NotFound(tourNotFoundMsg)
	}
	if err != nil {
		return apperror.Operation("tours.delete", err)
	}
	return nil
}

// TourStat is one row of the difficulty report.
type TourStat struct {
	Difficulty string  `bson:"_id" json:"difficulty"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

// MonthlyPlanEntry is one calendar month of the start-date report.
type MonthlyPlanEntry struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

func statsPipeline(includeSecret bool) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}
	return prependExclusion(pipeline, includeSecret)
}

func monthlyPlanPipeline(year int, includeSecret bool) mongo.Pipeline {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$unwind", Value: "$startDates"}},
		bson.D{{Key: "$match", Value: bson.M{
			"startDates": bson.M{"$gte": from, "$lte": to},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		bson.D{{Key: "$project", Value: bson.M{"_id": 0}}},
		bson.D{{Key: "$sort", Value: bson.M{"numTourStarts": -1}}},
		bson.D{{Key: "$limit", Value: 12}},
	}
	return prependExclusion(pipeline, includeSecret)
}

// prependExclusion puts the secret-tour match ahead of every other stage,
// the aggregation counterpart of visibleFilter.
func prependExclusion(pipeline mongo.Pipeline, includeSecret bool) mongo.Pipeline {
	if includeSecret {
		return pipeline
	}
	first := bson.D{{Key: "$match", Value: secretTourExclusion}}
	return append(mongo.Pipeline{first}, pipeline...)
}

// TourStats groups well-rated tours by difficulty with price and rating
// summaries.
func (db *DB) TourStats(ctx context.Context, includeSecret bool) ([]TourStat, error) {
	cur, err := db.Tours().Aggregate(ctx, statsPipeline(includeSecret))
	if err != nil {
		return nil, apperror.Operation("tours.stats", err)
	}
	defer cur.Close(ctx)

	stats := []TourStat{}
	if err := cur.All(ctx, &stats); err != nil {
		return nil, apperror.Operation("tours.stats", err)
	}
	return stats, nil
}

// MonthlyPlan expands start dates within year into per-month counts, busiest
// month first.
func (db *DB) MonthlyPlan(ctx context.Context, year int, includeSecret bool) ([]MonthlyPlanEntry, error) {
	cur, err := db.Tours().Aggregate(ctx, monthlyPlanPipeline(year, includeSecret))
	if err != nil {
		return nil, apperror.Operation("tours.monthlyPlan", err)
	}
	defer cur.Close(ctx)

	plan := []MonthlyPlanEntry{}
	if err := cur.All(ctx, &plan); err != nil {
		return nil, apperror.Operation("tours.monthlyPlan", err)
	}
	return plan, nil
}
