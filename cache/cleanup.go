// cleanup.go: the expired-entry sweep and the cell reclaimer.
//
// Expiration is dual: lazy on access (lookup discards what it finds
// expired) plus this active sweep so idle keys do not pile up. The
// reclaimer gives soft/weak cells their GC cooperation: cleared cells
// lose their entries, soft pins are released so an unaccessed value is
// collectible by the following sweep.
package cache

import "time"

func (c *cache[K, V]) cleanupLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opt.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

// sweepExpired removes every entry the expiry predicate rejects and
// returns how many went.
func (c *cache[K, V]) sweepExpired() int {
	now := c.clock.NowUnixNano()
	acc := c.accessTTL.Load()
	abs := c.absoluteTTL.Load()

	removed := 0
	var buf []pair[K, V]
	for _, s := range c.shards {
		buf = s.snapshotPairs(buf[:0])
		for _, p := range buf {
			if p.ent.expired(now, acc, abs) && c.discardEntry(p.key, p.ent) {
				removed++
			}
		}
	}
	if removed > 0 {
		c.log.Debug("cleanup removed expired entries", "cache", c.opt.Name, "count", removed)
	}
	return removed
}

func (c *cache[K, V]) reclaimLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opt.ReclaimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweepCleared()
		}
	}
}

// sweepCleared drops entries whose cells the GC emptied and unpins the
// survivors' soft cells for the next round.
func (c *cache[K, V]) sweepCleared() int {
	removed := 0
	var buf []pair[K, V]
	for _, s := range c.shards {
		buf = s.snapshotPairs(buf[:0])
		for _, p := range buf {
			if p.ent.cell.isCleared() {
				if c.discardEntry(p.key, p.ent) {
					removed++
				}
				continue
			}
			p.ent.cell.releasePin()
		}
	}
	if removed > 0 {
		c.log.Debug("reclaimer removed cleared entries", "cache", c.opt.Name, "count", removed)
	}
	return removed
}
