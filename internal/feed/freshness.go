package feed

import (
	"time"

	"chat-client/internal/models"
)

// StoryTTL is how long a story stays visible after creation. A story
// exactly this old is already expired.
const StoryTTL = 24 * time.Hour

// FreshStories filters out stories whose age at now has reached
// StoryTTL. Pure: it never mutates its input or the store.
func FreshStories(stories []models.Story, now time.Time) []models.Story {
	fresh := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if now.Sub(s.CreatedAt.Time) < StoryTTL {
			fresh = append(fresh, s)
		}
	}
	return fresh
}
