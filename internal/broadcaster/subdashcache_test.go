// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modbusd/modbusd/internal/repository"
)

// countingSubSource wraps fakeSubSource to verify a cached read never
// calls back into the source again within the TTL window.
type countingSubSource struct {
	fakeSubSource
	calls atomic.Int32
}

func (c *countingSubSource) ListSubdashboards() ([]*repository.Subdashboard, error) {
	c.calls.Add(1)
	return c.fakeSubSource.ListSubdashboards()
}

func TestSubdashboardCacheReusesWithinTTL(t *testing.T) {
	src := &countingSubSource{fakeSubSource: fakeSubSource{subs: map[int64][]int64{1: {10, 20}}}}
	c := newSubdashboardCache(src, time.Hour)

	c.sets()
	c.sets()
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSubdashboardCacheRefreshesAfterInvalidate(t *testing.T) {
	src := &fakeSubSource{subs: map[int64][]int64{1: {10}}}
	c := newSubdashboardCache(src, time.Hour)

	sets1 := c.sets()
	require.Len(t, sets1, 1)
	_, has20 := sets1[0].tags[20]
	assert.False(t, has20)

	src.subs[1] = []int64{10, 20}
	c.invalidate()

	sets2 := c.sets()
	_, has20 = sets2[0].tags[20]
	assert.True(t, has20)
}

func TestFilterUpdateReturnsFalseWhenNoTagsIntersect(t *testing.T) {
	set := map[int64]struct{}{1: {}, 2: {}}
	_, ok := filterUpdate(Update{Tags: []TagValue{{ID: 99}}}, set)
	assert.False(t, ok)
}

func TestFilterUpdateKeepsOnlyIntersectingTags(t *testing.T) {
	set := map[int64]struct{}{1: {}}
	u := Update{DeviceID: 5, Tags: []TagValue{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}}
	filtered, ok := filterUpdate(u, set)
	require.True(t, ok)
	require.Len(t, filtered.Tags, 1)
	assert.Equal(t, "a", filtered.Tags[0].Name)
	assert.Equal(t, int64(5), filtered.DeviceID)
}
