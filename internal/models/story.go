package models

// Story is an ephemeral media post. Expiry is a read-time filter, not
// a deletion: the document stays in the store until the owner removes it.
type Story struct {
	ID        string   `json:"id,omitempty"`
	UID       string   `json:"uid"`
	Username  string   `json:"username"`
	UserPhoto string   `json:"userPhoto,omitempty"`
	ImageURL  string   `json:"imageUrl"`
	Text      string   `json:"text,omitempty"`
	CreatedAt Time     `json:"createdAt"`
	Views     []Viewer `json:"views"`
}

// Viewer records one user having seen a story. The viewer set never
// contains the story owner and never contains a uid twice.
type Viewer struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Photo    string `json:"photo,omitempty"`
	ViewedAt Time   `json:"viewedAt"`
}

// ViewedBy reports whether uid already appears in the viewer set.
func (s Story) ViewedBy(uid string) bool {
	for _, v := range s.Views {
		if v.UID == uid {
			return true
		}
	}
	return false
}
