package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebindQuestionNumbered(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{`SELECT 1`, `SELECT 1`},
		{`SELECT * FROM essays WHERE id = $1`, `SELECT * FROM essays WHERE id = ?1`},
		{`UPDATE essays SET title = $1 WHERE id = $12`, `UPDATE essays SET title = ?1 WHERE id = ?12`},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, RebindQuestionNumbered(test.query))
	}
}

func TestNullableID(t *testing.T) {
	assert.False(t, nullableID(nil).Valid)

	id := int64(5)
	value := nullableID(&id)
	assert.True(t, value.Valid)
	assert.Equal(t, int64(5), value.Int64)
}
