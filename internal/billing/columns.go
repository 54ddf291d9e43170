package billing

import "github.com/Dhoini/offline-cashier/internal/domain"

// ColumnPrefix префикс физических колонок биллинга в таблице users
const ColumnPrefix = "offline_cashier_"

// Имена биллинговых полей, как их видит биллинговая библиотека
const (
	FieldStripeID     = "stripe_id"
	FieldCardBrand    = "card_brand"
	FieldCardLastFour = "card_last_four"
	FieldTrialEndsAt  = "trial_ends_at"
)

// renamedColumns переименованные колонки: логическое имя -> физическое
var renamedColumns = map[string]string{
	FieldStripeID:     domain.ColumnOfflineCashierStripeID,
	FieldCardBrand:    domain.ColumnOfflineCashierCardBrand,
	FieldCardLastFour: domain.ColumnOfflineCashierCardLast4,
	FieldTrialEndsAt:  domain.ColumnOfflineCashierTrialEndsAt,
}

// PhysicalColumn переводит логическое имя в физическое.
// Имена вне таблицы переименований возвращаются как есть.
func PhysicalColumn(name string) string {
	if physical, ok := renamedColumns[name]; ok {
		return physical
	}
	return name
}

// IsRenamed сообщает, хранится ли поле под префиксом
func IsRenamed(name string) bool {
	_, ok := renamedColumns[name]
	return ok
}
