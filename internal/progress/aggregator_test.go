package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulDiv(t *testing.T) {
	assert.Equal(t, int64(25), MulDiv(100, 100, 400))
	assert.Equal(t, int64(33), MulDiv(1, 100, 3))
	// Would overflow int64 if computed naively.
	assert.Equal(t, int64(50), MulDiv(math.MaxInt64/2, 100, math.MaxInt64-1))
}

func TestAggregatorTwoTargets(t *testing.T) {
	var seen []int
	agg := NewAggregator(400, func(p int) { seen = append(seen, p) })

	agg.Begin(100)
	agg.Update(50)
	agg.Update(100)
	agg.Complete()
	assert.Equal(t, 25, agg.Percent())

	agg.Begin(300)
	agg.Update(150)
	agg.Complete()
	assert.Equal(t, 100, agg.Percent())

	assert.Equal(t, []int{12, 25, 62, 100}, seen)
}

func TestAggregatorEmptyJobIsComplete(t *testing.T) {
	var seen []int
	agg := NewAggregator(0, func(p int) { seen = append(seen, p) })
	assert.Equal(t, 100, agg.Percent())
	agg.Begin(0)
	agg.Complete()
	agg.Finish()
	assert.Equal(t, []int{100}, seen)
}

func TestAggregatorNeverRegresses(t *testing.T) {
	var seen []int
	agg := NewAggregator(1000, func(p int) { seen = append(seen, p) })

	agg.Begin(1000)
	agg.Update(600)
	agg.Update(200) // simulated restart of a pass
	agg.Update(2000)
	agg.Finish()

	assert.Equal(t, []int{60, 100}, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestAggregatorCountsFailedTargets(t *testing.T) {
	agg := NewAggregator(200, nil)
	agg.Begin(100)
	agg.Update(10)
	// Target failed after 10 bytes; its whole size still counts as processed.
	agg.Complete()
	assert.Equal(t, 50, agg.Percent())
	assert.Equal(t, int64(100), agg.Processed())
}
