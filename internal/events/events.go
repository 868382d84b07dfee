package events

import "time"

// Event names published by the core. Names are dot-namespaced; listener
// collaborators match on them or subscribe to the wildcard.
const (
	UserLogin           = "user.login"
	UserLogout          = "user.logout"
	UserPasswordChanged = "user.password_changed"
	PostCreated         = "post.created"
	PostUpdated         = "post.updated"
	PostDeleted         = "post.deleted"
)

// UserEvent builds a user.* event carrying the subject and timestamp.
func UserEvent(name, subject string) Event {
	now := time.Now()
	return Event{
		Name: name,
		Payload: map[string]any{
			"subject":   subject,
			"timestamp": now.UTC().Format(time.RFC3339),
		},
		At: now,
	}
}

// PostEvent builds a post.* event carrying the post id, the acting
// subject and timestamp.
func PostEvent(name string, postID int, actor string) Event {
	now := time.Now()
	return Event{
		Name: name,
		Payload: map[string]any{
			"post_id":   postID,
			"actor":     actor,
			"timestamp": now.UTC().Format(time.RFC3339),
		},
		At: now,
	}
}
