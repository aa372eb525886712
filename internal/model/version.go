package model

import "time"

// VersionCacheRecord is persisted by the update check. It is advisory only.
type VersionCacheRecord struct {
	LastCheckedAt  int64   `json:"lastCheckedAt"` // unix epoch in milliseconds
	LatestVersion  *string `json:"latestVersion"`
	CurrentVersion string  `json:"currentVersion"`
}

// CheckedAt returns LastCheckedAt as time.Time
func (r VersionCacheRecord) CheckedAt() time.Time {
	return time.UnixMilli(r.LastCheckedAt)
}

// Fresh returns true if the record was written less than ttl ago.
func (r VersionCacheRecord) Fresh(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-r.LastCheckedAt < ttl.Milliseconds()
}
