package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatIDIsOrderIndependent(t *testing.T) {
	assert.Equal(t, ChatID("b", "a"), ChatID("a", "b"))
	assert.Equal(t, "a_b", ChatID("b", "a"))
}

func TestOtherParticipant(t *testing.T) {
	chat := Chat{Participants: []string{"a", "b"}}
	assert.Equal(t, "b", chat.OtherParticipant("a"))
	assert.Equal(t, "a", chat.OtherParticipant("b"))
	assert.Equal(t, "", Chat{Participants: []string{"x"}}.OtherParticipant("x"))
}

func TestTimeJSONRoundTrip(t *testing.T) {
	orig := At(time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC))

	raw, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, "1709296245123", string(raw))

	var back Time
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Equal(orig.Time))
}

func TestTimeZeroMarshalsNull(t *testing.T) {
	raw, err := json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	var back Time
	require.NoError(t, json.Unmarshal([]byte("null"), &back))
	assert.True(t, back.IsZero())
}

func TestRoomSpeakerHelpers(t *testing.T) {
	room := Room{Speakers: []string{"a", "b", "c"}}

	assert.True(t, room.HasSpeaker("b"))
	assert.False(t, room.HasSpeaker("z"))
	assert.Equal(t, []string{"a", "c"}, room.WithoutSpeaker("b"))
	assert.Equal(t, []string{"a", "b", "c"}, room.WithoutSpeaker("z"))
}

func TestStoryViewedBy(t *testing.T) {
	story := Story{Views: []Viewer{{UID: "a"}}}
	assert.True(t, story.ViewedBy("a"))
	assert.False(t, story.ViewedBy("b"))
}
