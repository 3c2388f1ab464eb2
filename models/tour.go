package models

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/robertfedus/natours/apperror"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report errors under the json field name, not the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type Tour struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name" validate:"required,min=10,max=40"`
	Slug            string             `bson:"slug,omitempty" json:"slug,omitempty"`
	Duration        float64            `bson:"duration,omitempty" json:"duration,omitempty" validate:"required,gt=0"`
	DurationWeeks   float64            `bson:"-" json:"durationWeeks,omitempty"`
	MaxGroupSize    int                `bson:"maxGroupSize,omitempty" json:"maxGroupSize,omitempty" validate:"required,gt=0"`
	Difficulty      string             `bson:"difficulty,omitempty" json:"difficulty,omitempty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64            `bson:"ratingsAverage,omitempty" json:"ratingsAverage,omitempty" validate:"omitempty,min=1,max=5"`
	RatingsQuantity *int               `bson:"ratingsQuantity" json:"ratingsQuantity,omitempty"`
	Price           float64            `bson:"price,omitempty" json:"price,omitempty" validate:"required,gt=0"`
	PriceDiscount   *float64           `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty"`
	Summary         string             `bson:"summary,omitempty" json:"summary,omitempty" validate:"required"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string             `bson:"imageCover,omitempty" json:"imageCover,omitempty" validate:"required"`
	Images          []string           `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt       *time.Time         `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	StartDates      []time.Time        `bson:"startDates,omitempty" json:"startDates,omitempty"`
	SecretTour      *bool              `bson:"secretTour" json:"secretTour,omitempty"`
}

// ValidateNew checks every schema constraint plus the cross-field discount
// rule, then fills creation-time fields: slug, createdAt, and the rating
// default. Called once per insert; partial updates go through TourUpdate.
func (t *Tour) ValidateNew() error {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)

	if err := validate.Struct(t); err != nil {
		return tourValidationError(err)
	}
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		return apperror.Validation("priceDiscount", "Discount price should be below the regular price")
	}

	t.Slug = slug.Make(t.Name)
	if t.RatingsAverage == 0 {
		t.RatingsAverage = 4.5
	}
	// ratingsQuantity and secretTour are pointers so a projection that drops
	// them omits them from the response; a full document always carries both.
	if t.RatingsQuantity == nil {
		t.RatingsQuantity = new(int)
	}
	if t.SecretTour == nil {
		t.SecretTour = new(bool)
	}
	now := time.Now()
	t.CreatedAt = &now
	return nil
}

// ComputeDerived fills the virtual fields after a read. durationWeeks is
// never persisted.
func (t *Tour) ComputeDerived() {
	if t.Duration > 0 {
		t.DurationWeeks = t.Duration / 7
	}
}

// TourUpdate carries a partial update; nil fields are left untouched.
// Field-level constraints are re-checked for every supplied field. The
// priceDiscount/price relation is only enforced at creation time, matching
// the tour schema's original behavior.
type TourUpdate struct {
	Name            *string      `json:"name" validate:"omitempty,min=10,max=40"`
	Duration        *float64     `json:"duration" validate:"omitempty,gt=0"`
	MaxGroupSize    *int         `json:"maxGroupSize" validate:"omitempty,gt=0"`
	Difficulty      *string      `json:"difficulty" validate:"omitempty,oneof=easy medium difficult"`
	RatingsAverage  *float64     `json:"ratingsAverage" validate:"omitempty,min=1,max=5"`
	RatingsQuantity *int         `json:"ratingsQuantity" validate:"omitempty,gte=0"`
	Price           *float64     `json:"price" validate:"omitempty,gt=0"`
	PriceDiscount   *float64     `json:"priceDiscount"`
	Summary         *string      `json:"summary"`
	Description     *string      `json:"description"`
	ImageCover      *string      `json:"imageCover"`
	Images          *[]string    `json:"images"`
	StartDates      *[]time.Time `json:"startDates"`
	SecretTour      *bool        `json:"secretTour"`
}

func (u *TourUpdate) Validate() error {
	if u.Name != nil {
		trimmed := strings.TrimSpace(*u.Name)
		u.Name = &trimmed
	}
	if err := validate.Struct(u); err != nil {
		return tourValidationError(err)
	}
	return nil
}

func tourValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Operation("tour validation", err)
	}
	fe := verrs[0]
	return apperror.Validation(fe.Field(), tourFieldMessage(fe))
}

func tourFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		switch fe.Tag() {
		case "required":
			return "A tour must have a name"
		case "min":
			return "A tour name must have more or equal than 10 characters"
		case "max":
			return "A tour name must have less or equal than 40 characters"
		}
	case "duration":
		return "A tour must have a duration"
	case "maxGroupSize":
		return "A tour must have a group size"
	case "difficulty":
		return "Difficulty is either: easy, medium or difficult"
	case "ratingsAverage":
		if fe.Tag() == "min" {
			return "Rating must be above 1.0"
		}
		return "Rating must be below 5.0"
	case "price":
		return "A tour must have a price"
	case "summary":
		return "A tour must have a summary"
	case "imageCover":
		return "A tour must have a cover image"
	}
	return "Invalid value for " + fe.Field()
}
