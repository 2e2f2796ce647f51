package service

import (
	"context"
	"fmt"
)

func progressCacheKey(userID int64) string {
	return fmt.Sprintf("progress:user:%d", userID)
}

func statsCacheKey(userID int64) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

func weeklyStatsCacheKey(userID int64) string {
	return fmt.Sprintf("stats:weekly:user:%d", userID)
}

// invalidateUserAggregates drops every cached aggregate for the user. Any
// write that can shift progress or stats goes through here.
func invalidateUserAggregates(ctx context.Context, cache *CacheService, userID int64) error {
	if cache == nil || !cache.Enabled() || userID == 0 {
		return nil
	}
	return cache.Invalidate(ctx, fmt.Sprintf("*:user:%d", userID))
}
