package models

// UserGroup mirrors the usergroup column of a user as one row per membership,
// so memberships can be joined and queried.
// The rows are rewritten together with the user record.
type UserGroup struct {
	// UserTable names the user table the membership belongs to.
	UserTable string `gorm:"primaryKey;column:user_table;size:64"`
	UserID    uint64 `gorm:"primaryKey;autoIncrement:false;column:user_id"`
	GroupID   uint64 `gorm:"primaryKey;autoIncrement:false;column:group_id"`
}

// TableName specifies the database table name for the UserGroup model.
func (UserGroup) TableName() string {
	return "user_groups"
}
