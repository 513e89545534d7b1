package customvalidator

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsYMD(t *testing.T) {
	assert.True(t, IsYMD("2024-03-15"))
	assert.True(t, IsYMD("2024-02-29"))
	assert.False(t, IsYMD("2023-02-29"))
	assert.False(t, IsYMD("2024-13-01"))
	assert.False(t, IsYMD("2024-3-15"))
	assert.False(t, IsYMD("15/03/2024"))
	assert.False(t, IsYMD(""))
}

func TestIsHHMM(t *testing.T) {
	assert.True(t, IsHHMM("09:30"))
	assert.True(t, IsHHMM("9:30"))
	assert.True(t, IsHHMM("23:59"))
	assert.False(t, IsHHMM("24:00"))
	assert.False(t, IsHHMM("10:60"))
	assert.False(t, IsHHMM("1030"))
	assert.False(t, IsHHMM("10:30:00"))
}

func TestRegisterCustomValidations(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomValidations(v))

	type payload struct {
		Date string `validate:"omitempty,ymd"`
		Time string `validate:"omitempty,hhmm"`
		Role string `validate:"omitempty,crm_role"`
	}

	assert.NoError(t, v.Struct(payload{Date: "2024-03-15", Time: "10:30", Role: "agent"}))
	assert.NoError(t, v.Struct(payload{}))
	assert.Error(t, v.Struct(payload{Date: "2024-02-30"}))
	assert.Error(t, v.Struct(payload{Time: "25:00"}))
	assert.Error(t, v.Struct(payload{Role: "owner"}))
}

func TestNullTypes(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	type patch struct {
		Date null.String `validate:"omitempty,ymd"`
	}

	assert.NoError(t, v.Struct(patch{}))
	assert.NoError(t, v.Struct(patch{Date: null.StringFrom("")}))
	assert.NoError(t, v.Struct(patch{Date: null.StringFrom("2024-03-15")}))
	assert.Error(t, v.Struct(patch{Date: null.StringFrom("tomorrow")}))
}
