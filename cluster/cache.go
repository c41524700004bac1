package cluster

// SingleFeatureCache remembers leaf records by the identity of the point they
// were built for. Entries are never evicted; call Clear when the point set is
// replaced. A point whose identity is reused with new coordinates keeps
// returning its old record until the cache is cleared.
//
// The cache is not safe for concurrent use.
type SingleFeatureCache struct {
	records map[uint32]*Record
}

func NewSingleFeatureCache() *SingleFeatureCache {
	return &SingleFeatureCache{records: make(map[uint32]*Record)}
}

func (c *SingleFeatureCache) Get(id uint32) (*Record, bool) {
	r, ok := c.records[id]
	return r, ok
}

func (c *SingleFeatureCache) Put(id uint32, r *Record) {
	c.records[id] = r
}

func (c *SingleFeatureCache) Clear() {
	clear(c.records)
}

func (c *SingleFeatureCache) Len() int {
	return len(c.records)
}
