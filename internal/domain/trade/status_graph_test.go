package trade

import (
	"testing"

	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/transition"
	"github.com/stretchr/testify/assert"
)

type edge struct{ from, to string }

// checkGraph walks every (from, to) pair and compares the result with the
// expected edge table. Guarded edges must fail with FORBIDDEN without the
// guard and pass with it.
func checkGraph[S ~string](t *testing.T, g *transition.Graph[S], allowed map[edge]identity.Permission) {
	t.Helper()
	none := identity.NewPermissionSet()
	all := identity.PermissionsFor(identity.RoleSuperAdmin)

	for _, from := range g.States() {
		for _, to := range g.States() {
			if from == to {
				assert.NoError(t, g.Validate(from, to, none), "%s self transition", from)
				continue
			}
			guard, legal := allowed[edge{string(from), string(to)}]
			err := g.Validate(from, to, all)
			if !legal {
				assert.Equal(t, shared.CodeValidation, shared.CodeOf(err), "%s -> %s should not exist", from, to)
				continue
			}
			assert.NoError(t, err, "%s -> %s should be legal", from, to)
			if guard != "" {
				assert.Equal(t, shared.CodeForbidden, shared.CodeOf(g.Validate(from, to, none)),
					"%s -> %s should require %s", from, to, guard)
			} else {
				assert.NoError(t, g.Validate(from, to, none))
			}
		}
	}
}

func TestOrderStatusGraph(t *testing.T) {
	checkGraph(t, OrderStatusGraph, map[edge]identity.Permission{
		{"PENDING", "PAID"}:              "",
		{"PENDING", "FAILED"}:            "",
		{"PENDING", "CANCELED"}:          "",
		{"PAID", "CANCELED"}:             "",
		{"PAID", "REFUNDED"}:             identity.PermRefundExecute,
		{"PAID", "PARTIAL_REFUNDED"}:     identity.PermRefundExecute,
		{"PARTIAL_REFUNDED", "REFUNDED"}: identity.PermRefundExecute,
		{"FAILED", "PENDING"}:            "",
	})
	assert.True(t, OrderStatusGraph.IsTerminal(OrderStatusCanceled))
	assert.True(t, OrderStatusGraph.IsTerminal(OrderStatusRefunded))
}

func TestPaymentStatusGraph(t *testing.T) {
	checkGraph(t, PaymentStatusGraph, map[edge]identity.Permission{
		{"UNPAID", "READY"}:      "",
		{"UNPAID", "CANCELED"}:   "",
		{"READY", "APPROVED"}:    "",
		{"READY", "FAILED"}:      "",
		{"READY", "CANCELED"}:    "",
		{"FAILED", "READY"}:      "",
		{"APPROVED", "CANCELED"}: identity.PermRefundExecute,
	})
	assert.True(t, PaymentStatusGraph.IsTerminal(PaymentStatusCanceled))
}

func TestShippingStatusGraph(t *testing.T) {
	checkGraph(t, ShippingStatusGraph, map[edge]identity.Permission{
		{"PENDING", "READY"}:      "",
		{"READY", "PREPARING"}:    "",
		{"READY", "SHIPPING"}:     "",
		{"PREPARING", "SHIPPING"}: "",
		{"SHIPPING", "DELIVERED"}: "",
	})
	assert.True(t, ShippingStatusGraph.IsTerminal(ShippingStatusDelivered))
}

func TestShippingReadyToDeliveredIsRejected(t *testing.T) {
	err := ShippingStatusGraph.Validate(ShippingStatusReady, ShippingStatusDelivered,
		identity.PermissionsFor(identity.RoleSuperAdmin))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestReturnStatusGraph(t *testing.T) {
	checkGraph(t, ReturnStatusGraph, map[edge]identity.Permission{
		{"REQUESTED", "APPROVED"}:        "",
		{"REQUESTED", "REJECTED"}:        "",
		{"APPROVED", "PICKUP_SCHEDULED"}: "",
		{"APPROVED", "RECEIVED"}:         "",
		{"APPROVED", "REFUNDING"}:        identity.PermRefundExecute,
		{"APPROVED", "REJECTED"}:         "",
		{"PICKUP_SCHEDULED", "RECEIVED"}: "",
		{"RECEIVED", "REFUNDING"}:        identity.PermRefundExecute,
		{"REFUNDING", "REFUNDED"}:        identity.PermRefundExecute,
		{"REJECTED", "CLOSED"}:           "",
	})
	assert.True(t, ReturnStatusGraph.IsTerminal(ReturnStatusRefunded))
	assert.True(t, ReturnStatusGraph.IsTerminal(ReturnStatusClosed))
}

func TestCSCannotEnterRefunding(t *testing.T) {
	err := ReturnStatusGraph.Validate(ReturnStatusReceived, ReturnStatusRefunding,
		identity.PermissionsFor(identity.RoleCS))
	assert.ErrorIs(t, err, shared.ErrForbidden)

	assert.NoError(t, ReturnStatusGraph.Validate(ReturnStatusReceived, ReturnStatusRefunding,
		identity.PermissionsFor(identity.RoleFinance)))
}
