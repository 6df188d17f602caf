package hub

// Event types delivered to subscribers. Resync tells a client it missed
// events while its queue was full and must re-page from its last cursor.
const (
	MessageCreated  = "MessageCreated"
	MessageModified = "MessageModified"
	MessageDeleted  = "MessageDeleted"

	ChannelCreated = "ChannelCreated"
	ChannelDeleted = "ChannelDeleted"

	ServerDeleted  = "ServerDeleted"
	ServerModified = "ServerModified"

	MemberRoleChanged = "MemberRoleChanged"
	MemberRemoved     = "MemberRemoved"

	Resync = "Resync"
)
