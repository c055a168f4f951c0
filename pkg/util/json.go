package util

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DecodeValid unmarshals remote JSON into T and validates the result.
// Remote payloads are loosely typed; any shape mismatch is reported as an
// error at the boundary instead of leaking partial structs upwards.
func DecodeValid[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := validate.Struct(&result); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}
	return &result, nil
}

// DecodeValidSlice is DecodeValid for JSON array payloads, validating
// each element.
func DecodeValidSlice[T any](data []byte) ([]T, error) {
	var result []T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	for i := range result {
		if err := validate.Struct(&result[i]); err != nil {
			return nil, fmt.Errorf("validate payload element %d: %w", i, err)
		}
	}
	return result, nil
}
