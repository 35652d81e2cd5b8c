package events

// Event type constants, format: domain.action

// Message events
const (
	EventTypeMessageCreated = "message.created"
	EventTypeMessageUpdated = "message.updated"
	EventTypeMessageDeleted = "message.deleted"
)

// Reaction events
const (
	EventTypeReactionSet     = "reaction.set"
	EventTypeReactionCleared = "reaction.cleared"
)

// Receipt events
const (
	EventTypeReceiptRead = "receipt.read"
)

// Typing events (real-time only, not persisted)
const (
	EventTypeTypingStarted = "typing.started"
	EventTypeTypingStopped = "typing.stopped"
)

// Conversation events
const (
	EventTypeConversationCreated  = "conversation.created"
	EventTypeConversationHidden   = "conversation.hidden"
	EventTypeConversationRevealed = "conversation.revealed"
)

// Participant events
const (
	EventTypeParticipantJoined = "participant.joined"
	EventTypeParticipantLeft   = "participant.left"
)

// Aggregate type constants
const (
	AggregateTypeMessage      = "message"
	AggregateTypeReaction     = "reaction"
	AggregateTypeReceipt      = "receipt"
	AggregateTypeConversation = "conversation"
	AggregateTypeParticipant  = "participant"
	AggregateTypeTyping       = "typing"
)

// Broker channel prefixes
const (
	ChannelPrefixConversation = "channel:conversation:"
	ChannelActivity           = "channel:activity"
)

// ConversationChannel returns the broker channel carrying all events for
// one conversation.
func ConversationChannel(conversationID string) string {
	return ChannelPrefixConversation + conversationID
}
