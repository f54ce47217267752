package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Sample payload mirroring the catalog creation request shape
type createItemRequest struct {
	Name     string  `json:"name" validate:"required"`
	Category string  `json:"category" validate:"required"`
	NewPrice float64 `json:"new_price" validate:"required,gt=0"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeName bool, includeCategory bool, includePrice bool) bool {
			// Create request with some fields missing
			reqMap := make(map[string]interface{})

			if includeName {
				reqMap["name"] = "Denim Jacket"
			}
			if includeCategory {
				reqMap["category"] = "women"
			}
			if includePrice {
				reqMap["new_price"] = 49.99
			}

			// If all fields are present, this should pass validation
			allFieldsPresent := includeName && includeCategory && includePrice

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/addproduct", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var testReq createItemRequest
			err := DecodeAndValidate(req, &testReq)

			if allFieldsPresent {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test that validation errors are properly formatted
func TestProperty_ValidationErrorsAreFormatted(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("validation errors include field information", prop.ForAll(
		func() bool {
			// Price fails the gt=0 rule
			reqMap := map[string]interface{}{
				"name":      "Denim Jacket",
				"category":  "women",
				"new_price": -5,
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/addproduct", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var testReq createItemRequest
			err := DecodeAndValidate(req, &testReq)

			if err == nil {
				return false // Should have validation error
			}

			validationErrors := FormatValidationErrors(err)

			if len(validationErrors) == 0 {
				return false
			}

			// Each error should have a field and message
			for _, ve := range validationErrors {
				if ve.Field == "" || ve.Message == "" {
					return false
				}
			}

			return true
		},
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test that valid requests pass validation
func TestProperty_ValidRequestsPassValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid requests pass validation", prop.ForAll(
		func(name string, category string, price float64) bool {
			reqMap := map[string]interface{}{
				"name":      name,
				"category":  category,
				"new_price": price,
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/addproduct", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var testReq createItemRequest
			err := DecodeAndValidate(req, &testReq)

			return err == nil
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
		gen.OneConstOf("women", "men", "kid"),
		gen.Float64Range(0.01, 9999.99),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test price range validation
func TestProperty_PriceValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("non-positive prices are rejected", prop.ForAll(
		func(price float64) bool {
			reqMap := map[string]interface{}{
				"name":      "Denim Jacket",
				"category":  "women",
				"new_price": price,
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/addproduct", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var testReq createItemRequest
			err := DecodeAndValidate(req, &testReq)

			if price > 0 {
				return err == nil
			}
			return err != nil
		},
		gen.Float64Range(-100, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
