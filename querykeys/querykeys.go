// Package querykeys defines the cache-key convention for every entity and the
// canonical invalidation dependency table. All keying goes through here so a
// view is never cached under one shape and invalidated under another.
//
// List views key under the plural kind with their options serialized behind
// it; single-entity views key under the singular kind plus the id. Derived
// per-owner views (a community's members, a user's memberships) get their own
// kind so they can be dropped without touching unrelated lists.
package querykeys

import "github.com/villagehq/go-community-client/cache"

// Entity kinds reported to the invalidation dispatcher.
const (
	KindCommunity    = "community"
	KindMembership   = "membership"
	KindEvent        = "event"
	KindAttendance   = "attendance"
	KindConversation = "conversation"
	KindMessage      = "message"
	KindShoutout     = "shoutout"
	KindThanks       = "thanks"
	KindProfile      = "profile"
	KindSession      = "session"
)

var keys = cache.NewDefaultKeySerializer()

// Communities is the prefix shared by every cached community list.
func Communities() string { return "communities" }

// CommunityList keys one community list query by its options.
func CommunityList(opts any) string { return keys.SerializeKey("communities", opts) }

// Community keys a single community view.
func Community(id string) string { return keys.SerializeKey("community", id) }

// CommunityMembers keys a community's membership list.
func CommunityMembers(communityID string) string {
	return keys.SerializeKey("community_members", communityID)
}

// UserMemberships keys the list of communities a user belongs to.
func UserMemberships(userID string) string {
	return keys.SerializeKey("user_memberships", userID)
}

// Events is the prefix shared by every cached event list.
func Events() string { return "events" }

// EventList keys one event list query by its options.
func EventList(opts any) string { return keys.SerializeKey("events", opts) }

// Event keys a single event view.
func Event(id string) string { return keys.SerializeKey("event", id) }

// EventAttendees keys an event's attendance list.
func EventAttendees(eventID string) string {
	return keys.SerializeKey("event_attendees", eventID)
}

// UserEvents keys the list of events a user attends.
func UserEvents(userID string) string { return keys.SerializeKey("user_events", userID) }

// UserConversations keys a user's conversation list.
func UserConversations(userID string) string {
	return keys.SerializeKey("user_conversations", userID)
}

// Conversation keys a single conversation view.
func Conversation(id string) string { return keys.SerializeKey("conversation", id) }

// ConversationMessages keys a conversation's message list. Extra params (e.g.
// paging) become further key segments.
func ConversationMessages(conversationID string, params ...any) string {
	segments := append([]any{conversationID}, params...)
	return keys.SerializeKey("conversation_messages", segments...)
}

// Shoutouts is the prefix shared by every cached shoutout list, including the
// per-sender and per-recipient views (they differ only in options).
func Shoutouts() string { return "shoutouts" }

// ShoutoutList keys one shoutout list query by its options.
func ShoutoutList(opts any) string { return keys.SerializeKey("shoutouts", opts) }

// AllThanks is the prefix shared by every cached thanks list.
func AllThanks() string { return "thanks" }

// ThanksList keys one thanks list query by its options.
func ThanksList(opts any) string { return keys.SerializeKey("thanks", opts) }

// Users is the prefix shared by cached profile lists.
func Users() string { return "users" }

// UserList keys one profile list query by its options.
func UserList(opts any) string { return keys.SerializeKey("users", opts) }

// UserProfile keys a single profile view.
func UserProfile(id string) string { return keys.SerializeKey("user", id) }

// Auth keys the cached authenticated identity.
func Auth() string { return "auth" }

// Dependencies is the declared invalidation table: per entity kind, the key
// prefixes a mutation of that kind affects. The Invalidator consults this on
// every mutation; adding a derived view means adding one pattern here, not
// editing every mutation site.
func Dependencies() cache.DependencyTable {
	return cache.DependencyTable{
		KindCommunity: {
			cache.Static(Communities()),
			cache.Keyed("community"),
		},
		KindMembership: {
			cache.Static(Communities()),
			cache.Related("community", "community"),
			cache.Related("community_members", "community"),
			cache.Related("user_memberships", "user"),
		},
		KindEvent: {
			cache.Static(Events()),
			cache.Keyed("event"),
		},
		KindAttendance: {
			cache.Static(Events()),
			cache.Related("event", "event"),
			cache.Related("event_attendees", "event"),
			cache.Related("user_events", "user"),
		},
		KindConversation: {
			cache.Keyed("conversation"),
			cache.Related("user_conversations", "participant_one"),
			cache.Related("user_conversations", "participant_two"),
		},
		KindMessage: {
			cache.Related("conversation", "conversation"),
			cache.Related("conversation_messages", "conversation"),
			cache.Related("user_conversations", "from"),
			cache.Related("user_conversations", "to"),
		},
		KindShoutout: {
			cache.Static(Shoutouts()),
		},
		KindThanks: {
			cache.Static(AllThanks()),
		},
		KindProfile: {
			cache.Static(Users()),
			cache.Keyed("user"),
		},
		KindSession: {
			cache.Static(Auth()),
			cache.Related("user", "user"),
		},
	}
}
