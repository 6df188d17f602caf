package globals

// Topic kinds used as the first half of a pub/sub topic key.
const (
	TopicKindChannel      = "channel"
	TopicKindConversation = "conversation"
	TopicKindServer       = "server"
	TopicKindServerList   = "server_list"
)
