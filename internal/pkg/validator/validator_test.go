package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	BookingID int64  `json:"booking_id" validate:"required,gt=0"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{BookingID: 1}))

	errs := Validate(sample{Email: "nope"})
	assert.Equal(t, "required", errs["booking_id"])
	assert.Equal(t, "email", errs["email"])
	assert.Equal(t, "invalid booking_id: required, email: email", errs.Error())
}
