package enum

// ── Saved order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// ── Staff roles (CHECK constrained in DB) ──

const (
	StaffRoleManager = "MANAGER"
	StaffRoleCashier = "CASHIER"
)

// ── Payment methods ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

// ── Order line kinds ──

const (
	ItemKindProduct = "product"
	ItemKindPackage = "package"
)

// SlotLabelPackageContent marks a flattened component row that stands for a
// package sub-item rather than a modifier.
const SlotLabelPackageContent = "Contenido"

// ── Push topics ──

const (
	TopicOrders    = "orders"
	TopicInventory = "inventory"
)

// IsPaymentMethod reports whether m is an accepted payment method.
func IsPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// IsTopic reports whether t is a push topic terminals may subscribe to.
func IsTopic(t string) bool {
	return t == TopicOrders || t == TopicInventory
}
