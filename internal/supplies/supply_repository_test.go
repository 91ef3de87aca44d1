package supplies

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"

	"metalflow/pkg/models"
)

func TestSupplyBucketWhereAlloyMatchesNullMetal(t *testing.T) {
	sql, _, err := goqu.From("safe_supplies").
		Where(supplyBucketWhere(1, models.AlloyBucket())...).
		ToSQL()

	assert.NoError(t, err)
	assert.Contains(t, sql, `"metal_id" IS NULL`)
	assert.NotContains(t, sql, "= NULL")
	assert.Contains(t, sql, `'ALLOY'`)
}

func TestSupplyBucketWhereFineMetalMatchesMetalID(t *testing.T) {
	sql, _, err := goqu.From("safe_supplies").
		Where(supplyBucketWhere(1, models.FineMetalBucket(7))...).
		ToSQL()

	assert.NoError(t, err)
	assert.Contains(t, sql, `"metal_id" = 7`)
	assert.Contains(t, sql, `'FINE_METAL'`)
}
