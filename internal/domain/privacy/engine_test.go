package privacy

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskFunctions(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"email", MaskEmail("kim@example.com"), "k**@example.com"},
		{"email without at", MaskEmail("kimexample"), "k*********"},
		{"email one char local", MaskEmail("k@example.com"), "k@example.com"},
		{"phone dashed", MaskPhone("010-1234-5678"), "010****5678"},
		{"phone plain", MaskPhone("01012345678"), "010****5678"},
		{"phone short", MaskPhone("12345"), "12***"},
		{"name hangul", MaskName("홍길동"), "홍**"},
		{"name single", MaskName("A"), "A"},
		{"address", MaskAddress("서울특별시 강남구 테헤란로 1"), "서울특별" + strings.Repeat("*", 12)},
		{"address short", MaskAddress("abc"), "a**"},
		{"middle", MaskMiddle("abcdef", 1, 1), "a****f"},
		{"middle too short", MaskMiddle("ab", 1, 1), "a*"},
		{"empty", MaskMiddle("", 1, 1), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

type orderRow struct {
	OrderNo     string `json:"order_no"`
	UserEmail   string `json:"user_email"`
	Recipient   string `json:"recipient"`
	Phone       string `json:"phone"`
	RoadAddress string `json:"road_address"`
	Total       int    `json:"total_amount"`
}

func sampleOrders() []orderRow {
	return []orderRow{{
		OrderNo:     "SAU1",
		UserEmail:   "buyer@example.com",
		Recipient:   "홍길동",
		Phone:       "010-1234-5678",
		RoadAddress: "서울특별시 강남구",
		Total:       39000,
	}}
}

func TestEngine_Apply(t *testing.T) {
	e := NewEngine()

	t.Run("masks for roles without full view", func(t *testing.T) {
		res, err := e.Apply(sampleOrders(), identity.PermissionsFor(identity.RoleOps))
		require.NoError(t, err)
		assert.False(t, res.FullView)
		assert.Equal(t, 4, res.Fields)

		rows := res.Payload.([]any)
		row := rows[0].(map[string]any)
		assert.Equal(t, "010****5678", row["phone"])
		assert.Contains(t, row["phone"], "****")
		assert.Equal(t, "b****@example.com", row["user_email"])
		assert.Equal(t, "홍**", row["recipient"])
		assert.Equal(t, "SAU1", row["order_no"])
		assert.Equal(t, json.Number("39000"), row["total_amount"])
	})

	t.Run("passes through and flags full view", func(t *testing.T) {
		res, err := e.Apply(sampleOrders(), identity.PermissionsFor(identity.RoleFinance))
		require.NoError(t, err)
		assert.True(t, res.FullView)

		row := res.Payload.([]any)[0].(map[string]any)
		assert.Equal(t, "010-1234-5678", row["phone"])
		assert.Equal(t, "buyer@example.com", row["user_email"])
	})

	t.Run("no full view flag without pii", func(t *testing.T) {
		res, err := e.Apply(map[string]any{"order_no": "SAU1", "phone": ""}, identity.PermissionsFor(identity.RoleSuperAdmin))
		require.NoError(t, err)
		assert.False(t, res.FullView)
	})

	t.Run("nested objects are masked", func(t *testing.T) {
		payload := map[string]any{
			"items": []any{map[string]any{"customer": map[string]any{"email": "a@b.co"}}},
		}
		masked, err := e.Mask(payload)
		require.NoError(t, err)
		customer := masked.(map[string]any)["items"].([]any)[0].(map[string]any)["customer"].(map[string]any)
		assert.Equal(t, "a@b.co", customer["email"])

		masked, err = e.Mask(map[string]any{"customer": map[string]any{"email": "abc@b.co"}})
		require.NoError(t, err)
		assert.Equal(t, "a**@b.co", masked.(map[string]any)["customer"].(map[string]any)["email"])
	})

	t.Run("is deterministic", func(t *testing.T) {
		a, _ := e.Mask(sampleOrders())
		b, _ := e.Mask(sampleOrders())
		assert.Equal(t, a, b)
	})

	t.Run("extra fields", func(t *testing.T) {
		e2 := NewEngine(WithField("contact_phone", KindPhone))
		masked, err := e2.Mask(map[string]any{"contact_phone": "01099998888"})
		require.NoError(t, err)
		assert.Equal(t, "010****8888", masked.(map[string]any)["contact_phone"])
	})

	t.Run("nil payload", func(t *testing.T) {
		res, err := e.Apply(nil, identity.PermissionSet{})
		require.NoError(t, err)
		assert.Nil(t, res.Payload)
	})
}
