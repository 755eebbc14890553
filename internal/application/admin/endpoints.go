package admin

// Endpoint names scope idempotency keys. They match the HTTP route
// templates so a key can only replay on the route it was first used on.
const (
	EndpointUpdateOrder         = "PATCH /api/v1/admin/orders/:order_no"
	EndpointCreateReturn        = "POST /api/v1/admin/returns"
	EndpointUpdateReturn        = "PATCH /api/v1/admin/returns/:id"
	EndpointDeleteReturn        = "DELETE /api/v1/admin/returns/:id"
	EndpointGenerateSettlements = "POST /api/v1/admin/settlements/generate"
	EndpointUpdateSettlement    = "PATCH /api/v1/admin/settlements/:id"
	EndpointDeleteSettlement    = "DELETE /api/v1/admin/settlements/:id"
	EndpointUpdateUser          = "PATCH /api/v1/admin/users/:id"
	EndpointDeactivateUser      = "DELETE /api/v1/admin/users/:id"
)
