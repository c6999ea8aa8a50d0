package iwm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAuditTrailScan 测试审核日志列的读取
func TestAuditTrailScan(t *testing.T) {
	t.Run("ValidJSON", func(t *testing.T) {
		raw := `[{"actor":1,"action":"approve","notes":"ok","timestamp":"2025-01-02T03:04:05Z"}]`

		var trail AuditTrail
		err := trail.Scan([]byte(raw))

		assert.NoError(t, err)
		assert.Len(t, trail, 1)
		assert.Equal(t, uint(1), trail[0].Actor)
		assert.Equal(t, AuditApprove, trail[0].Action)
	})

	t.Run("StringInput", func(t *testing.T) {
		var trail AuditTrail
		err := trail.Scan(`[{"actor":7,"action":"reject","timestamp":"2025-01-02T03:04:05Z"}]`)

		assert.NoError(t, err)
		assert.Len(t, trail, 1)
		assert.Equal(t, AuditReject, trail[0].Action)
	})

	t.Run("CorruptJSONDegradesToEmpty", func(t *testing.T) {
		var trail AuditTrail
		err := trail.Scan([]byte(`{"not":"a list`))

		// 损坏的日志退化为空集合，不报错
		assert.NoError(t, err)
		assert.Empty(t, trail)
		assert.NotNil(t, trail)
	})

	t.Run("NullColumnDegradesToEmpty", func(t *testing.T) {
		var trail AuditTrail
		err := trail.Scan(nil)

		assert.NoError(t, err)
		assert.Empty(t, trail)
		assert.NotNil(t, trail)
	})

	t.Run("UnexpectedTypeDegradesToEmpty", func(t *testing.T) {
		var trail AuditTrail
		err := trail.Scan(42)

		assert.NoError(t, err)
		assert.Empty(t, trail)
	})
}

// TestAuditTrailValue 测试审核日志列的写入
func TestAuditTrailValue(t *testing.T) {
	t.Run("EmptyTrailIsEmptyArray", func(t *testing.T) {
		v, err := AuditTrail{}.Value()

		assert.NoError(t, err)
		assert.Equal(t, []byte("[]"), v)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		trail := AuditTrail{}.Append(AuditEntry{
			Actor:     9,
			Role:      RoleAdmin,
			Action:    AuditRefund,
			Notes:     "duplicate purchase",
			Timestamp: now,
		})

		v, err := trail.Value()
		assert.NoError(t, err)

		var decoded AuditTrail
		assert.NoError(t, decoded.Scan(v))
		assert.Len(t, decoded, 1)
		assert.Equal(t, trail[0].Actor, decoded[0].Actor)
		assert.Equal(t, trail[0].Action, decoded[0].Action)
		assert.True(t, trail[0].Timestamp.Equal(decoded[0].Timestamp))
	})

	t.Run("AppendDoesNotMutateOriginal", func(t *testing.T) {
		trail := AuditTrail{}
		longer := trail.Append(AuditEntry{Actor: 1, Action: AuditAddNotes, Timestamp: time.Now()})

		assert.Empty(t, trail)
		assert.Len(t, longer, 1)
	})
}

// 序列化结果必须是合法的json数组，供后台直接展示
func TestAuditTrailJSONShape(t *testing.T) {
	trail := AuditTrail{}.Append(AuditEntry{
		Actor:     3,
		Action:    AuditSubmitProof,
		Timestamp: time.Now().UTC(),
	})

	v, err := trail.Value()
	assert.NoError(t, err)

	var generic []map[string]interface{}
	assert.NoError(t, json.Unmarshal(v.([]byte), &generic))
	assert.Equal(t, "submit_proof", generic[0]["action"])
}
