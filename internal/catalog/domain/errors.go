package domain

import "errors"

var (
	ErrProductEmptyID     = errors.New("product id cannot be empty")
	ErrProductEmptyName   = errors.New("product name cannot be empty")
	ErrContentEmptyID     = errors.New("content id cannot be empty")
	ErrContentEmptyLabel  = errors.New("content label cannot be empty")
	ErrContentInvalidType = errors.New("invalid content repository type")
	ErrDuplicateContent   = errors.New("content already attached to product")
	ErrProductNotFound    = errors.New("product not found")
	ErrContentNotFound    = errors.New("content not found")
)
