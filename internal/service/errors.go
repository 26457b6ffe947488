package service

import "errors"

var (
	// ErrValidation is returned when a required product field is missing on create.
	ErrValidation = errors.New("name, price, and stock quantity are required")

	// ErrEmptyName is returned when an update would clear the product name.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrDuplicateName is returned when another product already uses the name.
	ErrDuplicateName = errors.New("product with this name already exists")

	// ErrProductNotFound is returned when no product has the requested ID.
	ErrProductNotFound = errors.New("product not found")
)
