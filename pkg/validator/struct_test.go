package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPassenger struct {
	Name   string `json:"name" validate:"required,min=2"`
	Age    int    `json:"age" validate:"required,gte=1,lte=120"`
	Gender string `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
}

type testRequest struct {
	ContactPhone string          `json:"contactPhone" validate:"omitempty,phone"`
	ContactEmail string          `json:"contactEmail" validate:"omitempty,email"`
	Passengers   []testPassenger `json:"passengers" validate:"dive"`
}

func TestStruct(t *testing.T) {
	v := New("94")

	tests := []struct {
		name    string
		req     testRequest
		field   string
		message string
	}{
		{
			name: "valid",
			req: testRequest{
				ContactPhone: "077 123 4567",
				Passengers:   []testPassenger{{Name: "Nimal", Age: 30, Gender: "MALE"}},
			},
		},
		{
			name:    "bad phone",
			req:     testRequest{ContactPhone: "12345"},
			field:   "contactPhone",
			message: "contactPhone must be a valid phone number",
		},
		{
			name:    "bad email",
			req:     testRequest{ContactEmail: "nope"},
			field:   "contactEmail",
			message: "contactEmail must be a valid email address",
		},
		{
			name:    "passenger age",
			req:     testRequest{Passengers: []testPassenger{{Name: "Nimal", Age: 130, Gender: "MALE"}}},
			field:   "passengers[0].age",
			message: "age must be at most 120",
		},
		{
			name:    "passenger gender",
			req:     testRequest{Passengers: []testPassenger{{Name: "Nimal", Age: 30, Gender: "X"}}},
			field:   "passengers[0].gender",
			message: "gender must be one of MALE, FEMALE, OTHER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var fe FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, tt.message, fe.Message)
		})
	}
}
