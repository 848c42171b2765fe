package conversations

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/villagehq/go-community-client/auth"
	"github.com/villagehq/go-community-client/postgrest"
	"github.com/villagehq/go-community-client/users"
)

const (
	conversationsTable = "conversations"
	messagesTable      = "messages"
)

// Domain-rule errors.
var (
	// ErrSelfConversation rejects opening a conversation with oneself.
	ErrSelfConversation = errors.New("cannot open a conversation with yourself")
	// ErrNotParticipant rejects access to a conversation by a third party.
	ErrNotParticipant = errors.New("not a participant of this conversation")
)

// SendMessageData is the input for sending a message.
type SendMessageData struct {
	Content string
}

// Validate checks the message body.
func (d SendMessageData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Content, validation.Required, validation.Length(1, 4000)),
	)
}

// Service performs conversation and message operations against the backend.
// Every operation is scoped to the authenticated caller; there is no way to
// read or write another pair's thread.
type Service struct {
	db       *postgrest.Client
	sessions auth.UserSource
	profiles *users.Service
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a conversation service.
func NewService(db *postgrest.Client, sessions auth.UserSource, profiles *users.Service, log zerolog.Logger) *Service {
	return &Service{db: db, sessions: sessions, profiles: profiles, log: log, now: time.Now}
}

// Fetch lists the caller's conversations, most recent activity first, with
// the counterpart's profile embedded.
func (s *Service) Fetch(ctx context.Context) ([]Conversation, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("user_id", caller.ID).Msg("fetching conversations")

	var rows []conversationRow
	err = s.db.From(conversationsTable).Select().
		Or(
			fmt.Sprintf("participant_one_id.eq.%s", caller.ID),
			fmt.Sprintf("participant_two_id.eq.%s", caller.ID),
		).
		Order("updated_at", true).
		Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Msg("fetch conversations failed")
		return nil, err
	}

	conversations := conversationsFromRows(rows)

	ids := make([]string, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.OtherParticipantID(caller.ID))
	}
	infos, err := s.profiles.FetchInfos(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range conversations {
		other := conversations[i].OtherParticipantID(caller.ID)
		if info, ok := infos[other]; ok {
			if err := conversations[i].AttachOther(caller.ID, info); err != nil {
				return nil, err
			}
		}
	}
	return conversations, nil
}

// FetchByID returns one of the caller's conversations, or (nil, nil) when it
// does not exist. A conversation the caller is not part of is indistinguishable
// from a missing one.
func (s *Service) FetchByID(ctx context.Context, id string) (*Conversation, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}

	row, err := s.fetchRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	conversation := conversationFromRow(*row)
	if !conversation.Has(caller.ID) {
		s.log.Warn().Str("conversation_id", id).Str("caller_id", caller.ID).Msg("conversation access denied")
		return nil, nil
	}
	return &conversation, nil
}

// OpenWith returns the caller's conversation with otherUserID, creating it
// when the pair has never talked. Either participant order matches.
func (s *Service) OpenWith(ctx context.Context, otherUserID string) (*Conversation, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if otherUserID == caller.ID {
		return nil, ErrSelfConversation
	}

	var rows []conversationRow
	err = s.db.From(conversationsTable).Select().
		Or(
			fmt.Sprintf("and(participant_one_id.eq.%s,participant_two_id.eq.%s)", caller.ID, otherUserID),
			fmt.Sprintf("and(participant_one_id.eq.%s,participant_two_id.eq.%s)", otherUserID, caller.ID),
		).
		Limit(1).
		Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Msg("conversation lookup failed")
		return nil, err
	}
	if len(rows) > 0 {
		conversation := conversationFromRow(rows[0])
		return &conversation, nil
	}

	insert := insertConversationRow(uuid.NewString(), caller.ID, otherUserID, s.now().UTC())

	var created []conversationRow
	if err := s.db.From(conversationsTable).Insert(insert).Do(ctx, &created); err != nil {
		s.log.Error().Err(err).Msg("create conversation failed")
		return nil, err
	}
	if len(created) == 0 {
		return nil, errors.New("create conversation returned no row")
	}

	s.log.Info().Str("conversation_id", created[0].ID).Msg("conversation created")
	conversation := conversationFromRow(created[0])
	return &conversation, nil
}

// SendMessage appends a message to one of the caller's conversations and
// moves the thread's last-message pointer.
func (s *Service) SendMessage(ctx context.Context, conversationID string, data SendMessageData) (*Message, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	row, err := s.fetchRow(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, postgrest.NewNotFoundError("conversation", conversationID)
	}
	conversation := conversationFromRow(*row)
	if !conversation.Has(caller.ID) {
		s.log.Warn().Str("conversation_id", conversationID).Str("caller_id", caller.ID).Msg("send denied")
		return nil, ErrNotParticipant
	}

	now := s.now().UTC()
	insert := insertMessageRow(uuid.NewString(), conversationID, caller.ID, conversation.OtherParticipantID(caller.ID), data.Content, now)

	var created []messageRow
	if err := s.db.From(messagesTable).Insert(insert).Do(ctx, &created); err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("send message failed")
		return nil, err
	}
	if len(created) == 0 {
		return nil, errors.New("send message returned no row")
	}

	err = s.db.From(conversationsTable).
		Update(lastMessageRow(created[0].ID, now)).
		Eq("id", conversationID).
		Do(ctx, nil)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("last-message update failed")
		return nil, err
	}

	s.log.Info().Str("conversation_id", conversationID).Str("message_id", created[0].ID).Msg("message sent")
	message := messageFromRow(created[0])
	return &message, nil
}

// FetchMessages returns a page of a conversation's history, oldest first,
// with sender profiles embedded. Only participants may read.
func (s *Service) FetchMessages(ctx context.Context, conversationID string, opts MessageOptions) ([]Message, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}

	row, err := s.fetchRow(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, postgrest.NewNotFoundError("conversation", conversationID)
	}
	if !conversationFromRow(*row).Has(caller.ID) {
		s.log.Warn().Str("conversation_id", conversationID).Str("caller_id", caller.ID).Msg("message read denied")
		return nil, ErrNotParticipant
	}

	q := s.db.From(messagesTable).Select().
		Eq("conversation_id", conversationID).
		Order("created_at", false)
	if opts.Limit > 0 {
		q = q.Range(opts.Offset, opts.Offset+opts.Limit-1)
	}

	var msgRows []messageRow
	if err := q.Do(ctx, &msgRows); err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("fetch messages failed")
		return nil, err
	}

	messages := messagesFromRows(msgRows)

	senders := make([]string, 0, len(messages))
	for _, m := range messages {
		senders = append(senders, m.FromUserID)
	}
	infos, err := s.profiles.FetchInfos(ctx, senders)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if info, ok := infos[messages[i].FromUserID]; ok {
			if err := messages[i].AttachSender(info); err != nil {
				return nil, err
			}
		}
	}
	return messages, nil
}

// MarkRead marks every message addressed to the caller in the conversation
// as read and returns how many changed.
func (s *Service) MarkRead(ctx context.Context, conversationID string) (int, error) {
	caller, err := s.sessions.CurrentUser()
	if err != nil {
		return 0, err
	}

	var rows []messageRow
	err = s.db.From(messagesTable).
		Update(markReadRow(s.now().UTC())).
		Eq("conversation_id", conversationID).
		Eq("to_user_id", caller.ID).
		IsNull("read_at").
		Do(ctx, &rows)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("mark read failed")
		return 0, err
	}

	if len(rows) > 0 {
		s.log.Info().Str("conversation_id", conversationID).Int("count", len(rows)).Msg("messages marked read")
	}
	return len(rows), nil
}

func (s *Service) fetchRow(ctx context.Context, id string) (*conversationRow, error) {
	var rows []conversationRow
	if err := s.db.From(conversationsTable).Select().Eq("id", id).Limit(1).Do(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
