// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import (
	"time"

	"github.com/iamlouk/lrucache"

	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/repository"
)

// SubdashboardSource lists subdashboards and their tag membership.
// Satisfied directly by *repository.Repository.
type SubdashboardSource interface {
	ListSubdashboards() ([]*repository.Subdashboard, error)
	GetSubdashboardTagIDs(id int64) ([]int64, error)
}

type subdashboardSet struct {
	def  *repository.Subdashboard
	tags map[int64]struct{}
}

const subdashCacheKey = "subdashboards"

// subdashboardCache is a pull-through cache of subdashboard tag-id sets,
// refreshed at most every ttl (spec §4.10: "refreshed every 10s or on
// demand"), built on pkg/lrucache the same way internal/alarm uses it for
// its rule list.
type subdashboardCache struct {
	source SubdashboardSource
	ttl    time.Duration
	cache  *lrucache.Cache
}

func newSubdashboardCache(source SubdashboardSource, ttl time.Duration) *subdashboardCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &subdashboardCache{source: source, ttl: ttl, cache: lrucache.New(1 << 20)}
}

func (c *subdashboardCache) sets() []subdashboardSet {
	v := c.cache.Get(subdashCacheKey, func() (interface{}, time.Duration, int) {
		defs, err := c.source.ListSubdashboards()
		if err != nil {
			modbuslog.Warnf("broadcaster: could not list subdashboards: %v", err)
			return []subdashboardSet{}, time.Second, 0
		}
		out := make([]subdashboardSet, 0, len(defs))
		for _, d := range defs {
			tagIDs, err := c.source.GetSubdashboardTagIDs(d.ID)
			if err != nil {
				modbuslog.Warnf("broadcaster: could not list tags for subdashboard %d: %v", d.ID, err)
				continue
			}
			set := make(map[int64]struct{}, len(tagIDs))
			for _, id := range tagIDs {
				set[id] = struct{}{}
			}
			out = append(out, subdashboardSet{def: d, tags: set})
		}
		return out, c.ttl, 0
	})
	return v.([]subdashboardSet)
}

// invalidate forces the next sets() call to reload, used for the "on
// demand" refresh spec §4.10 allows alongside the 10s TTL.
func (c *subdashboardCache) invalidate() {
	c.cache.Del(subdashCacheKey)
}

// filterUpdate returns the tags of u that belong to set's tag-id set, or false
// if none do.
func filterUpdate(u Update, set map[int64]struct{}) (Update, bool) {
	filtered := make([]TagValue, 0, len(u.Tags))
	for _, t := range u.Tags {
		if _, ok := set[t.ID]; ok {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return Update{}, false
	}
	out := u
	out.Tags = filtered
	return out, true
}
