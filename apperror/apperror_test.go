package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("gone")))
	assert.Equal(t, KindValidation, KindOf(Validation("price", "bad")))
	assert.Equal(t, KindOperation, KindOf(Operation("db", errors.New("boom"))))
	assert.Equal(t, KindOperation, KindOf(errors.New("plain")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("gone"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsNotFound(err))
}

func TestOperationUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Operation("tours.find", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "tours.find")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestValidationCarriesField(t *testing.T) {
	var ae *Error
	err := Validation("priceDiscount", "Discount price should be below the regular price")

	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "priceDiscount", ae.Field)
	assert.Equal(t, "Discount price should be below the regular price", ae.Message)
}
