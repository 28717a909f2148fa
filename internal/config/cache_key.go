package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key holding a logged-in user's gateway session.
func (r *CacheKeyStruct) SessionKey(tokenID string) string {
	return fmt.Sprintf("session:%s", tokenID)
}

// UserSessionsKey returns the set of token IDs issued to a user.
func (r *CacheKeyStruct) UserSessionsKey(userID string) string {
	return fmt.Sprintf("user:%s:sessions", userID)
}

// FlowSnapshotKey returns the cache key for a user's answer flow on an interview.
func (r *CacheKeyStruct) FlowSnapshotKey(userID, interviewID string) string {
	return fmt.Sprintf("user:%s:interview:%s:flow", userID, interviewID)
}

var CacheKey = NewCacheKeyStruct()
