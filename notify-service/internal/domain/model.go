package domain

import "time"

// RoomModel is the GORM model for the room directory.
type RoomModel struct {
	ID             string    `gorm:"type:varchar(64);primaryKey"`
	OrganizationID string    `gorm:"type:varchar(64);index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// ToDomain converts RoomModel to domain Room.
func (m *RoomModel) ToDomain() *Room {
	return &Room{ID: m.ID, OrganizationID: m.OrganizationID}
}

// ThreadModel is the GORM model for discussion threads. The unique index on
// room_id enforces at most one thread per room across processes.
type ThreadModel struct {
	ID             string    `gorm:"type:varchar(64);primaryKey"`
	RoomID         string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	OrganizationID string    `gorm:"type:varchar(64);index;not null"`
	Name           string    `gorm:"type:varchar(200);not null"`
	WhoCanPost     string    `gorm:"type:varchar(20);not null;default:'everyone'"`
	CreatedBy      string    `gorm:"type:varchar(64)"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ThreadModel.
func (ThreadModel) TableName() string {
	return "threads"
}

// ToDomain converts ThreadModel to domain Thread.
func (m *ThreadModel) ToDomain() *Thread {
	return &Thread{
		ID:             m.ID,
		RoomID:         m.RoomID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		WhoCanPost:     m.WhoCanPost,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
	}
}

// ThreadToModel converts domain Thread to ThreadModel.
func ThreadToModel(t *Thread) *ThreadModel {
	return &ThreadModel{
		ID:             t.ID,
		RoomID:         t.RoomID,
		OrganizationID: t.OrganizationID,
		Name:           t.Name,
		WhoCanPost:     t.WhoCanPost,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
	}
}

// PostModel is the GORM model for thread posts.
type PostModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	ThreadID  string    `gorm:"type:varchar(64);index;not null"`
	Title     string    `gorm:"type:varchar(300)"`
	Content   string    `gorm:"type:text"`
	IsMention bool      `gorm:"default:false"`
	AuthorID  string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for PostModel.
func (PostModel) TableName() string {
	return "posts"
}

// ToDomain converts PostModel to domain Post.
func (m *PostModel) ToDomain() *Post {
	return &Post{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		Title:     m.Title,
		Content:   m.Content,
		IsMention: m.IsMention,
		AuthorID:  m.AuthorID,
		CreatedAt: m.CreatedAt,
	}
}

// PostToModel converts domain Post to PostModel.
func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:        p.ID,
		ThreadID:  p.ThreadID,
		Title:     p.Title,
		Content:   p.Content,
		IsMention: p.IsMention,
		AuthorID:  p.AuthorID,
		CreatedAt: p.CreatedAt,
	}
}

// GrantModel grants a capability within an organization. ActorID "*"
// matches every actor of ActorKind.
type GrantModel struct {
	ID             uint   `gorm:"primaryKey"`
	OrganizationID string `gorm:"type:varchar(64);uniqueIndex:idx_grant;not null"`
	ActorKind      string `gorm:"type:varchar(16);uniqueIndex:idx_grant;not null"`
	ActorID        string `gorm:"type:varchar(64);uniqueIndex:idx_grant;not null"`
	Capability     string `gorm:"type:varchar(32);uniqueIndex:idx_grant;not null"`
}

// TableName specifies the table name for GrantModel.
func (GrantModel) TableName() string {
	return "grants"
}

// AccessLevelModel records a user's access level in a room.
type AccessLevelModel struct {
	RoomID string `gorm:"type:varchar(64);primaryKey"`
	UserID string `gorm:"type:varchar(64);primaryKey"`
	Level  string `gorm:"type:varchar(20);not null"`
}

// TableName specifies the table name for AccessLevelModel.
func (AccessLevelModel) TableName() string {
	return "access_levels"
}

// AllModels lists every model for auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&RoomModel{},
		&ThreadModel{},
		&PostModel{},
		&GrantModel{},
		&AccessLevelModel{},
	}
}
