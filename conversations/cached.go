package conversations

import (
	"context"

	"github.com/villagehq/go-community-client/auth"
	"github.com/villagehq/go-community-client/cache"
	"github.com/villagehq/go-community-client/querykeys"
)

// Cached wraps the conversation service with keyed read-through caching and
// dependency-table invalidation. Conversation views are keyed per caller, so
// this layer resolves the session itself.
type Cached struct {
	svc      *Service
	sessions auth.UserSource
	cache    cache.CacheService
	inv      *cache.Invalidator
}

// NewCached creates the cached conversation service.
func NewCached(svc *Service, sessions auth.UserSource, cacheService cache.CacheService, inv *cache.Invalidator) *Cached {
	return &Cached{svc: svc, sessions: sessions, cache: cacheService, inv: inv}
}

// Fetch lists the caller's conversations through the cache.
func (c *Cached) Fetch(ctx context.Context) ([]Conversation, error) {
	caller, err := c.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	return cache.GetOrFetch(ctx, c.cache, querykeys.UserConversations(caller.ID), func(ctx context.Context) ([]Conversation, error) {
		return c.svc.Fetch(ctx)
	})
}

// FetchByID returns one conversation through the cache.
func (c *Cached) FetchByID(ctx context.Context, id string) (*Conversation, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.Conversation(id), func(ctx context.Context) (*Conversation, error) {
		return c.svc.FetchByID(ctx, id)
	})
}

// FetchMessages returns a message page through the cache.
func (c *Cached) FetchMessages(ctx context.Context, conversationID string, opts MessageOptions) ([]Message, error) {
	key := querykeys.ConversationMessages(conversationID, opts)
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]Message, error) {
		return c.svc.FetchMessages(ctx, conversationID, opts)
	})
}

// OpenWith returns or creates the thread with another user. The lookup may
// have created the thread, so both participants' list views are invalidated
// either way.
func (c *Cached) OpenWith(ctx context.Context, otherUserID string) (*Conversation, error) {
	conversation, err := c.svc.OpenWith(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	err = c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindConversation,
		ID:   conversation.ID,
		Related: map[string]string{
			"participant_one": conversation.ParticipantOneID,
			"participant_two": conversation.ParticipantTwoID,
		},
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// SendMessage appends a message and invalidates the thread and both
// participants' list views.
func (c *Cached) SendMessage(ctx context.Context, conversationID string, data SendMessageData) (*Message, error) {
	message, err := c.svc.SendMessage(ctx, conversationID, data)
	if err != nil {
		return nil, err
	}
	err = c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindMessage,
		ID:   message.ID,
		Related: map[string]string{
			"conversation": message.ConversationID,
			"from":         message.FromUserID,
			"to":           message.ToUserID,
		},
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// MarkRead marks the caller's unread messages read and, when anything
// changed, invalidates the thread and the caller's list view.
func (c *Cached) MarkRead(ctx context.Context, conversationID string) (int, error) {
	caller, err := c.sessions.CurrentUser()
	if err != nil {
		return 0, err
	}
	count, err := c.svc.MarkRead(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	err = c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindMessage,
		ID:   conversationID,
		Related: map[string]string{
			"conversation": conversationID,
			"to":           caller.ID,
		},
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
