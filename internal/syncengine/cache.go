package syncengine

// Cache is the client-side view the engine invalidates when the server
// reports a change. Implementations must be safe for use from the engine's
// stream goroutine.
type Cache interface {
	// InvalidateItem drops the cached view of one item.
	InvalidateItem(id string)
	// InvalidateItemList drops the cached item listing.
	InvalidateItemList()
}

type nopCache struct{}

func (nopCache) InvalidateItem(string) {}
func (nopCache) InvalidateItemList()   {}
