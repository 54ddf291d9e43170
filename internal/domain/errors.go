package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrUnknownAttribute у записи нет атрибута с таким именем
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrInvalidAttributeValue значение не подходит по типу к атрибуту
	ErrInvalidAttributeValue = errors.New("invalid attribute value")

	// ErrNoStripeID у пользователя еще нет клиента в Stripe
	ErrNoStripeID = errors.New("user has no stripe id")
)

// NotFoundError представляет ошибку "не найдено"
type NotFoundError struct {
	Entity string
	ID     string
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// AttributeError описывает неудачное обращение к атрибуту записи
type AttributeError struct {
	Model     string
	Attribute string
	Err       error
}

// Error реализует интерфейс error
func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Model, e.Attribute, e.Err)
}

// Unwrap возвращает исходную ошибку
func (e *AttributeError) Unwrap() error {
	return e.Err
}

func unknownAttribute(model, name string) error {
	return &AttributeError{Model: model, Attribute: name, Err: ErrUnknownAttribute}
}

func invalidAttributeValue(model, name string, value any) error {
	return &AttributeError{
		Model:     model,
		Attribute: name,
		Err:       fmt.Errorf("%w: %T", ErrInvalidAttributeValue, value),
	}
}
