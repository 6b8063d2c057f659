package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LearnerProfileKey returns the cache key for a learner's model profile.
func (r *CacheKeyStruct) LearnerProfileKey(learnerID string) string {
	return fmt.Sprintf("learner:%s:profile", learnerID)
}

// TeachingSessionKey returns the cache key for a live teaching session.
func (r *CacheKeyStruct) TeachingSessionKey(sessionID string) string {
	return fmt.Sprintf("teaching:%s:session", sessionID)
}

// AssessmentLockKey returns the key used to fence concurrent writers on an
// assessment session across instances.
func (r *CacheKeyStruct) AssessmentLockKey(sessionID string) string {
	return fmt.Sprintf("assessment:%s:lock", sessionID)
}

// TeachingAdaptationChannel returns the PubSub channel carrying adaptation
// events for dashboard consumers.
func (r *CacheKeyStruct) TeachingAdaptationChannel(sessionID string) string {
	return fmt.Sprintf("teaching:%s:adaptations", sessionID)
}

var CacheKey = NewCacheKeyStruct()
