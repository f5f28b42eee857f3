package core

// Indicator identifies a technical indicator kind consumed from the
// Indicator Provider (§6).
type Indicator string

const (
	IndicatorADX     Indicator = "adx"
	IndicatorPlusDI  Indicator = "plus_di"
	IndicatorMinusDI Indicator = "minus_di"
	IndicatorATR     Indicator = "atr"
	IndicatorRSI     Indicator = "rsi"
	IndicatorEMA     Indicator = "ema"
	IndicatorStochK  Indicator = "stoch_k"
	IndicatorStochD  Indicator = "stoch_d"
)

// Timeframe is a minute/hour/day multiple timeframe string, e.g. "5m",
// "1h", "4h".
type Timeframe string

// cacheKey identifies one (indicator, timeframe, shift, period) reading.
type cacheKey struct {
	indicator Indicator
	timeframe Timeframe
	shift     int
	period    int
}

// IndicatorCache is populated once per management cycle and invalidated at
// the next cycle boundary; within a cycle, repeated reads of the same key
// return identical values (§3 invariant). Owned exclusively by the Event
// Loop.
type IndicatorCache struct {
	values map[cacheKey]float64
}

// NewIndicatorCache returns an empty cache ready for one cycle's reads.
func NewIndicatorCache() *IndicatorCache {
	return &IndicatorCache{values: make(map[cacheKey]float64)}
}

// Reset clears the cache at the start of a new cycle.
func (c *IndicatorCache) Reset() {
	c.values = make(map[cacheKey]float64)
}

// Get returns a cached value and whether it was present.
func (c *IndicatorCache) Get(ind Indicator, tf Timeframe, shift, period int) (float64, bool) {
	v, ok := c.values[cacheKey{ind, tf, shift, period}]
	return v, ok
}

// Set stores a value for this cycle.
func (c *IndicatorCache) Set(ind Indicator, tf Timeframe, shift, period int, value float64) {
	c.values[cacheKey{ind, tf, shift, period}] = value
}
