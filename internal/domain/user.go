package domain

import (
	"time"

	"github.com/google/uuid"
)

// Имена физических колонок таблицы users
const (
	ColumnID                        = "id"
	ColumnEmail                     = "email"
	ColumnName                      = "name"
	ColumnOfflineCashierStripeID    = "offline_cashier_stripe_id"
	ColumnOfflineCashierCardBrand   = "offline_cashier_card_brand"
	ColumnOfflineCashierCardLast4   = "offline_cashier_card_last_four"
	ColumnOfflineCashierTrialEndsAt = "offline_cashier_trial_ends_at"
	ColumnCreatedAt                 = "created_at"
	ColumnUpdatedAt                 = "updated_at"
)

const userModel = "user"

// Order задает сортировку связанных записей
type Order struct {
	Column string
	Desc   bool
}

// Relation описывает связь "один ко многим" от пользователя
type Relation struct {
	Related    string
	ForeignKey string
	Order      Order
}

// User представляет запись пользователя CMS.
// Биллинговые колонки хранятся с префиксом offline_cashier_, чтобы не
// пересекаться со схемой самой CMS.
type User struct {
	ID                        uuid.UUID  `db:"id" json:"id"`
	Email                     string     `db:"email" json:"email"`
	Name                      string     `db:"name" json:"name,omitempty"`
	OfflineCashierStripeID    *string    `db:"offline_cashier_stripe_id" json:"offline_cashier_stripe_id,omitempty"`
	OfflineCashierCardBrand   *string    `db:"offline_cashier_card_brand" json:"offline_cashier_card_brand,omitempty"`
	OfflineCashierCardLast4   *string    `db:"offline_cashier_card_last_four" json:"offline_cashier_card_last_four,omitempty"`
	OfflineCashierTrialEndsAt *time.Time `db:"offline_cashier_trial_ends_at" json:"offline_cashier_trial_ends_at,omitempty"`
	CreatedAt                 time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time  `db:"updated_at" json:"updated_at"`

	// HasMany реестр связей, которые расширения регистрируют на модели
	HasMany map[string]Relation `db:"-" json:"-"`
}

// NewUser создает нового пользователя с заданными параметрами
func NewUser(email, name string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		HasMany:   make(map[string]Relation),
	}
}

// RegisterHasMany регистрирует связь под именем name
func (u *User) RegisterHasMany(name string, rel Relation) {
	if u.HasMany == nil {
		u.HasMany = make(map[string]Relation)
	}
	u.HasMany[name] = rel
}

// Relation возвращает зарегистрированную связь
func (u *User) Relation(name string) (Relation, bool) {
	rel, ok := u.HasMany[name]
	return rel, ok
}

// DisplayName возвращает имя, а если его нет - email
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Column читает атрибут по имени физической колонки.
// Для пустых nullable-колонок возвращает nil.
func (u *User) Column(name string) (any, error) {
	switch name {
	case ColumnID:
		return u.ID, nil
	case ColumnEmail:
		return u.Email, nil
	case ColumnName:
		return u.Name, nil
	case ColumnOfflineCashierStripeID:
		return derefString(u.OfflineCashierStripeID), nil
	case ColumnOfflineCashierCardBrand:
		return derefString(u.OfflineCashierCardBrand), nil
	case ColumnOfflineCashierCardLast4:
		return derefString(u.OfflineCashierCardLast4), nil
	case ColumnOfflineCashierTrialEndsAt:
		if u.OfflineCashierTrialEndsAt == nil {
			return nil, nil
		}
		return *u.OfflineCashierTrialEndsAt, nil
	case ColumnCreatedAt:
		return u.CreatedAt, nil
	case ColumnUpdatedAt:
		return u.UpdatedAt, nil
	}
	return nil, unknownAttribute(userModel, name)
}

// SetColumn записывает атрибут по имени физической колонки.
// Nullable-колонки принимают nil для очистки значения.
func (u *User) SetColumn(name string, value any) error {
	switch name {
	case ColumnID:
		id, ok := value.(uuid.UUID)
		if !ok {
			return invalidAttributeValue(userModel, name, value)
		}
		u.ID = id
	case ColumnEmail, ColumnName:
		s, ok := value.(string)
		if !ok {
			return invalidAttributeValue(userModel, name, value)
		}
		if name == ColumnEmail {
			u.Email = s
		} else {
			u.Name = s
		}
	case ColumnOfflineCashierStripeID:
		return setNullableString(&u.OfflineCashierStripeID, name, value)
	case ColumnOfflineCashierCardBrand:
		return setNullableString(&u.OfflineCashierCardBrand, name, value)
	case ColumnOfflineCashierCardLast4:
		return setNullableString(&u.OfflineCashierCardLast4, name, value)
	case ColumnOfflineCashierTrialEndsAt:
		switch v := value.(type) {
		case nil:
			u.OfflineCashierTrialEndsAt = nil
		case time.Time:
			u.OfflineCashierTrialEndsAt = &v
		case *time.Time:
			if v == nil {
				u.OfflineCashierTrialEndsAt = nil
				break
			}
			t := *v
			u.OfflineCashierTrialEndsAt = &t
		default:
			return invalidAttributeValue(userModel, name, value)
		}
	case ColumnCreatedAt, ColumnUpdatedAt:
		t, ok := value.(time.Time)
		if !ok {
			return invalidAttributeValue(userModel, name, value)
		}
		if name == ColumnCreatedAt {
			u.CreatedAt = t
		} else {
			u.UpdatedAt = t
		}
	default:
		return unknownAttribute(userModel, name)
	}
	return nil
}

// IsSet сообщает, существует ли колонка и хранит ли она непустое значение
func (u *User) IsSet(name string) bool {
	v, err := u.Column(name)
	if err != nil || v == nil {
		return false
	}
	switch x := v.(type) {
	case string:
		return x != ""
	case uuid.UUID:
		return x != uuid.Nil
	case time.Time:
		return !x.IsZero()
	}
	return true
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func setNullableString(dst **string, name string, value any) error {
	switch v := value.(type) {
	case nil:
		*dst = nil
	case string:
		*dst = &v
	case *string:
		if v == nil {
			*dst = nil
			break
		}
		c := *v
		*dst = &c
	default:
		return invalidAttributeValue(userModel, name, value)
	}
	return nil
}
