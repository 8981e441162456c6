package domain

import (
	"time"

	"github.com/openlobby/room-directory/pkg/database"
)

// RoomModel is the GORM model for the rooms table. ParticipantsCount is
// kept denormalized so the store can sort on it.
type RoomModel struct {
	ID                string               `gorm:"type:varchar(36);primaryKey"`
	Name              string               `gorm:"type:varchar(200);not null"`
	CreatorID         string               `gorm:"type:varchar(36);index;not null"`
	PasswordHash      string               `gorm:"type:varchar(255)"`
	ParticipantIDs    database.StringArray `gorm:"type:text"`
	ParticipantsCount int                  `gorm:"default:0;index"`
	CreatedAt         time.Time            `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// UserModel is the GORM model for the users table. Users are owned by
// the external user collaborator; this service only reads them to
// denormalize creator identity.
type UserModel struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	Username string `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}
