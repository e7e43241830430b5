package service

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"teamwear/internal/model"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/urgent_request.json
var urgentRequestSchema []byte

var (
	urgentSchemaOnce sync.Once
	urgentSchema     *gojsonschema.Schema
	urgentSchemaErr  error
)

func loadUrgentSchema() (*gojsonschema.Schema, error) {
	urgentSchemaOnce.Do(func() {
		urgentSchema, urgentSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(urgentRequestSchema))
		if urgentSchemaErr != nil {
			urgentSchemaErr = fmt.Errorf("failed to load urgent request schema: %w", urgentSchemaErr)
		}
	})
	return urgentSchema, urgentSchemaErr
}

// ValidateUrgentRequestData checks the order snapshot carried by an urgent
// request. It runs on submission and again right before the order is created.
func ValidateUrgentRequestData(data model.UrgentRequestData) error {
	schema, err := loadUrgentSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequestData, err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to validate request data: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidRequestData, strings.Join(msgs, "; "))
	}
	if data.UnitPrice != nil && data.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit_price must not be negative", ErrInvalidRequestData)
	}
	return nil
}
