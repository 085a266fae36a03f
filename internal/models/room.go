package models

// Room is a live audio party room. The host is implicitly a speaker;
// removing the host from the speaker set does not delete the room.
type Room struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	HostUID   string   `json:"hostUid"`
	HostName  string   `json:"hostName"`
	HostPhoto string   `json:"hostPhoto,omitempty"`
	Speakers  []string `json:"speakers"`
	Viewers   int      `json:"viewers"`
}

// WithoutSpeaker returns the speaker set with uid removed.
func (r Room) WithoutSpeaker(uid string) []string {
	speakers := make([]string, 0, len(r.Speakers))
	for _, s := range r.Speakers {
		if s != uid {
			speakers = append(speakers, s)
		}
	}
	return speakers
}

// HasSpeaker reports whether uid currently holds a seat.
func (r Room) HasSpeaker(uid string) bool {
	for _, s := range r.Speakers {
		if s == uid {
			return true
		}
	}
	return false
}
