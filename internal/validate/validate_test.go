package validate

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/tally/internal/apperror"
)

type sample struct {
	Amount  *Amount `json:"amount" validate:"required,decimal,amount"`
	Date    string  `json:"date" validate:"required,datetime=2006-01-02"`
	Color   string  `json:"color" validate:"required,rgbhex"`
	Receipt *string `json:"receipt_image_url" validate:"omitempty,url"`
}

func dec(s string) *Amount {
	return AmountOf(s)
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0.01", true},
		{"100.50", true},
		{"999999999.99", true},
		{"0", false},
		{"-5", false},
		{"1000000000", false},
		{"999999999.991", false},
		{"1.005", false},
		{"abc", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidAmount(tt.in), "ValidAmount(%q)", tt.in)
	}
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	err := v.Struct(sample{Amount: dec("100.50"), Date: "2024-01-15", Color: "#FF5733"})
	assert.NoError(t, err)
}

func TestStruct_FieldErrorsUseJSONNames(t *testing.T) {
	v := New()
	bad := "not a url"
	err := v.Struct(sample{Amount: dec("0"), Date: "2024-02-30", Color: "red", Receipt: &bad})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Code)
	assert.Contains(t, appErr.Fields, "amount")
	assert.Contains(t, appErr.Fields, "date")
	assert.Contains(t, appErr.Fields, "color")
	assert.Contains(t, appErr.Fields, "receipt_image_url")
}

func TestStruct_MissingAmountIsRequired(t *testing.T) {
	v := New()
	err := v.Struct(sample{Date: "2024-01-15", Color: "#FF5733"})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "The amount field is required.", appErr.Fields["amount"])
}

func TestStruct_NonNumericAmount(t *testing.T) {
	v := New()

	for _, body := range []string{`{"amount":"abc"}`, `{"amount":true}`, `{"amount":{}}`, `{"amount":[1]}`} {
		var in sample
		require.NoError(t, json.Unmarshal([]byte(body), &in), body)
		in.Date = "2024-01-15"
		in.Color = "#FF5733"

		err := v.Struct(in)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr), body)
		assert.Equal(t, "The amount must be a number.", appErr.Fields["amount"], body)
	}
}

func TestAmount_DecodesNumbersAndNumericStrings(t *testing.T) {
	for body, want := range map[string]string{
		`{"amount":100.50}`:   "100.5",
		`{"amount":"100.50"}`: "100.5",
		`{"amount":1e2}`:      "100",
	} {
		var in sample
		require.NoError(t, json.Unmarshal([]byte(body), &in), body)
		require.NotNil(t, in.Amount, body)
		assert.True(t, in.Amount.Decimal().Equal(decimal.RequireFromString(want)), body)
	}

	var in sample
	require.NoError(t, json.Unmarshal([]byte(`{"amount":null}`), &in))
	assert.Nil(t, in.Amount)
}

func TestBindError(t *testing.T) {
	e := echo.New()

	type body struct {
		Date   string  `json:"date"`
		TagIDs []int64 `json:"tag_ids"`
	}

	tests := []struct {
		name    string
		payload string
		code    int
		field   string
		message string
	}{
		{"number for string", `{"date":20240115}`, 422, "date", "The date must be a string."},
		{"string for array", `{"tag_ids":"1"}`, 422, "tag_ids", "The tag ids must be an array."},
		{"string in int array", `{"tag_ids":["x"]}`, 422, "tag_ids", "The tag ids must be an integer."},
		{"truncated", `{"date":`, 400, "", ""},
		{"not an object", `[1,2]`, 400, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c := e.NewContext(req, httptest.NewRecorder())

			var b body
			bindErr := c.Bind(&b)
			require.Error(t, bindErr)

			var appErr *apperror.AppError
			require.True(t, errors.As(BindError(bindErr), &appErr))
			assert.Equal(t, tt.code, appErr.Code)
			if tt.field != "" {
				assert.Equal(t, tt.message, appErr.Fields[tt.field])
			} else {
				assert.Equal(t, "invalid request body", appErr.Message)
			}
		})
	}
}
