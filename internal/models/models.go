package models

import "time"

type MemberRole string

const (
	RoleGuest     MemberRole = "GUEST"
	RoleModerator MemberRole = "MODERATOR"
	RoleAdmin     MemberRole = "ADMIN"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleGuest, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type ChannelType string

const (
	ChannelText  ChannelType = "TEXT"
	ChannelAudio ChannelType = "AUDIO"
	ChannelVideo ChannelType = "VIDEO"
)

func (t ChannelType) Valid() bool {
	switch t {
	case ChannelText, ChannelAudio, ChannelVideo:
		return true
	}
	return false
}

type ContainerKind string

const (
	ContainerChannel ContainerKind = "CHANNEL"
	ContainerDirect  ContainerKind = "DIRECT"
)

func (k ContainerKind) Valid() bool {
	return k == ContainerChannel || k == ContainerDirect
}

type Profile struct {
	ID          int64  `json:"id,string,omitempty"`
	Email       string `json:"email,omitempty"`
	UserName    string `json:"userName,omitempty"`
	DisplayName string `json:"displayName"`
	Picture     string `json:"picture"`
	Password    []byte `json:"-"`
}

type Server struct {
	ID         int64  `json:"id,string"`
	OwnerID    int64  `json:"ownerID,string"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
	InviteCode string `json:"inviteCode,omitempty"`
}

type Member struct {
	ID        int64      `json:"id,string"`
	ServerID  int64      `json:"serverID,string"`
	ProfileID int64      `json:"profileID,string"`
	Role      MemberRole `json:"role"`
	Profile   Profile    `json:"profile"`
}

type Channel struct {
	ID       int64       `json:"id,string"`
	ServerID int64       `json:"serverID,string"`
	Name     string      `json:"name"`
	Type     ChannelType `json:"type"`
}

// Conversation stores the pair in canonical order: MemberLow < MemberHigh.
type Conversation struct {
	ID         int64 `json:"id,string"`
	MemberLow  int64 `json:"memberOneID,string"`
	MemberHigh int64 `json:"memberTwoID,string"`
}

type Message struct {
	// ID is a snowflake; CreatedAt is derived from it by the ledger, the
	// row itself stores no creation column.
	ID            int64         `json:"id,string"`
	CreatedAt     time.Time     `json:"createdAt"`
	ContainerID   int64         `json:"containerID,string"`
	ContainerKind ContainerKind `json:"containerKind"`
	AuthorID      int64         `json:"authorID,string"`
	Seq           int64         `json:"seq,string"`
	Body          string        `json:"body"`
	Attachment    string        `json:"attachment,omitempty"`
	EditedAt      *time.Time    `json:"editedAt,omitempty"`
	Deleted       bool          `json:"deleted"`
	Author        Profile       `json:"author"`
}

type ConfigFile struct {
	Address           string
	Port              string
	BehindNginx       bool
	TlsCert           string
	TlsKey            string
	PrintHttpRequests bool
	LogToFile         bool
	JwtSecret         string
	SnowflakeWorkerID int64
	SelfContained     bool
	DbUser            string
	DbPassword        string
	DbAddress         string
	DbPort            string
	DbDatabase        string
	RedisAddress      string
	RedisPassword     string
}
