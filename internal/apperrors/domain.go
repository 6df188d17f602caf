package apperrors

// Domain errors shared between stores and the gateway.
var (
	ErrMemberNotFound   = NotFound("member not found")
	ErrMessageNotFound  = NotFound("message not found")
	ErrChannelNotFound  = NotFound("channel not found")
	ErrServerNotFound   = NotFound("server not found")
	ErrSelfConversation = InvalidInput("cannot open a conversation with yourself")
	ErrEmptyMessage     = InvalidInput("message needs a body or an attachment")
	ErrAlreadyDeleted   = Conflict("message is already deleted")
	ErrNoopRoleChange   = InvalidInput("member already has that role")
	ErrNotAuthor        = Forbidden("only the author can do that")
	ErrActionForbidden  = Forbidden("your role does not allow that")
)
