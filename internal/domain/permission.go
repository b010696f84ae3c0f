package domain

type Permission string

const (
	PermBrowseCatalog     Permission = "catalog:browse"
	PermManageProducts    Permission = "products:manage"
	PermManageCart        Permission = "cart:manage"
	PermCheckout          Permission = "orders:checkout"
	PermViewOrders        Permission = "orders:view"
	PermAssignTransporter Permission = "orders:assign_transporter"
	PermUpdateDelivery    Permission = "orders:update_delivery"
	PermCancelOrder       Permission = "orders:cancel"
	PermPay               Permission = "payments:pay"
	PermViewPayments      Permission = "payments:view"
	PermNotifications     Permission = "notifications:read"
	PermManageUsers       Permission = "users:manage"
)

// rolePermissions is the single role dispatch table consulted at the API boundary.
var rolePermissions = map[Role][]Permission{
	RoleBuyer: {
		PermBrowseCatalog, PermManageCart, PermCheckout, PermViewOrders,
		PermCancelOrder, PermPay, PermViewPayments, PermNotifications,
	},
	RoleWholesaler: {
		PermBrowseCatalog, PermManageProducts, PermManageCart, PermCheckout,
		PermViewOrders, PermAssignTransporter, PermUpdateDelivery, PermCancelOrder,
		PermPay, PermViewPayments, PermNotifications,
	},
	RoleTrader: {
		PermBrowseCatalog, PermManageProducts, PermViewOrders, PermAssignTransporter,
		PermUpdateDelivery, PermViewPayments, PermNotifications,
	},
	RoleTransporter: {
		PermBrowseCatalog, PermViewOrders, PermUpdateDelivery, PermNotifications,
	},
	RoleAdmin: {
		PermBrowseCatalog, PermManageProducts, PermViewOrders, PermAssignTransporter,
		PermUpdateDelivery, PermCancelOrder, PermViewPayments, PermNotifications, PermManageUsers,
	},
}

func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}
