package client

import "log"

// Op tags the action a notice belongs to.
type Op string

const (
	OpSession       Op = "session"
	OpRegister      Op = "register"
	OpSignIn        Op = "sign_in"
	OpSendRequest   Op = "send_request"
	OpHandleRequest Op = "handle_request"
	OpOpenChat      Op = "open_chat"
	OpSendMessage   Op = "send_message"
	OpCreateRoom    Op = "create_room"
	OpJoinRoom      Op = "join_room"
	OpLeaveRoom     Op = "leave_room"
	OpPostStory     Op = "post_story"
	OpDeleteStory   Op = "delete_story"
	OpUpdatePhoto   Op = "update_photo"
)

// Notice is a tagged outcome for the presentation layer: either a
// user-visible error or a confirmation. FailedText carries the draft a
// failed send had already cleared, so the view can re-populate it.
type Notice struct {
	Op         Op
	Err        error
	Info       string
	FailedText string
}

func (c *Client) notify(n Notice) {
	select {
	case c.notices <- n:
	default:
		log.Printf("client: notice channel backlogged, dropping %s notice", n.Op)
	}
}
