package enum

// Order lifecycle (numeric codes are the wire format)

// OrderStatus is the kitchen queue state of an order.
type OrderStatus int

const (
	OrderStatusWaiting   OrderStatus = 0
	OrderStatusPreparing OrderStatus = 1
	OrderStatusCompleted OrderStatus = 2
	OrderStatusCancelled OrderStatus = 3
)

// String returns the display label for a status.
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusWaiting:
		return "WAITING"
	case OrderStatusPreparing:
		return "PREPARING"
	case OrderStatusCompleted:
		return "COMPLETED"
	case OrderStatusCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// ItemStatus marks a persisted order item as active or cancelled.
type ItemStatus int

const (
	ItemStatusCancelled ItemStatus = 0
	ItemStatusActive    ItemStatus = 1
)

// Cart line kinds

// LineKind discriminates the cart line union.
type LineKind string

const (
	KindSimple     LineKind = "SIMPLE"
	KindPromoGroup LineKind = "PROMO_GROUP"
	KindBundle     LineKind = "BUNDLE"
	KindCustom     LineKind = "CUSTOM"
)

// Service types

const (
	ServiceTypeDineIn   = "DINE_IN"
	ServiceTypeTakeaway = "TAKEAWAY"
	ServiceTypeDelivery = "DELIVERY"
)

// Catalog categories

const (
	CategoryPizza   = "PIZZA"
	CategorySeafood = "SEAFOOD"
	CategoryDrink   = "DRINK"
	CategoryDessert = "DESSERT"
	CategoryBundle  = "BUNDLE"
	CategoryCustom  = "CUSTOM"
)

// Sizes (promo grouping keys and add-on surcharge keys)

const (
	SizeSmall  = "SMALL"
	SizeMedium = "MEDIUM"
	SizeLarge  = "LARGE"
)

// User roles

const (
	UserRoleOwner   = "OWNER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// Payment methods

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)
