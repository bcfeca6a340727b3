package models

import (
	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

// User is a row of a local user table. Several tables may share this layout,
// the repository selects the table per call.
type User struct {
	// ID is the primary key, 0 until persisted.
	ID uint64 `gorm:"primaryKey;column:id"`
	// ParentID is the container the record lives in.
	ParentID uint64 `gorm:"column:pid;not null;default:0"`
	// DN is the distinguished name of the directory entry the user was synchronized from.
	DN       string `gorm:"column:dn;size:512"`
	Username string `gorm:"column:username;size:255;not null"`
	// Password holds an argon2id hash. Directory users get a random one on every sync.
	Password string `gorm:"column:password;size:255"`
	// UserGroup is the comma separated list of group ids.
	UserGroup string `gorm:"column:usergroup;size:1024"`
	Name      string `gorm:"column:name;size:255"`
	FirstName string `gorm:"column:first_name;size:100"`
	LastName  string `gorm:"column:last_name;size:100"`
	Email     string `gorm:"column:email;size:255"`
	Title     string `gorm:"column:title;size:100"`
	Lang      string `gorm:"column:lang;size:10;default:en"`
	Admin     int    `gorm:"column:admin;not null;default:0"`
	Disable   int    `gorm:"column:disable;not null;default:0"`
	Deleted   int    `gorm:"column:deleted;not null;default:0"`
	// EndTime is the unix time the account expired at, 0 for never.
	EndTime int64 `gorm:"column:endtime;not null;default:0"`
	Crdate  int64 `gorm:"column:crdate"`
	Tstamp  int64 `gorm:"column:tstamp"`
}

// Record converts the row into a working copy.
func (u *User) Record() *Record {
	return NewRecord(map[string]any{
		ColumnID:        u.ID,
		ColumnParentID:  u.ParentID,
		ColumnDN:        u.DN,
		ColumnUsername:  u.Username,
		ColumnPassword:  u.Password,
		ColumnUserGroup: u.UserGroup,
		"name":          u.Name,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"email":         u.Email,
		ColumnTitle:     u.Title,
		"lang":          u.Lang,
		ColumnAdmin:     u.Admin,
		"disable":       u.Disable,
		ColumnDeleted:   u.Deleted,
		ColumnEndTime:   u.EndTime,
		ColumnCrdate:    u.Crdate,
		ColumnTstamp:    u.Tstamp,
	})
}

// UserFromRecord converts a working copy back into a row.
func UserFromRecord(r *Record) User {
	return User{
		ID:        r.ID(),
		ParentID:  cast.ToUint64(r.Get(ColumnParentID)),
		DN:        r.String(ColumnDN),
		Username:  r.String(ColumnUsername),
		Password:  r.String(ColumnPassword),
		UserGroup: r.String(ColumnUserGroup),
		Name:      r.String("name"),
		FirstName: r.String("first_name"),
		LastName:  r.String("last_name"),
		Email:     r.String("email"),
		Title:     r.String(ColumnTitle),
		Lang:      r.String("lang"),
		Admin:     cast.ToInt(r.Get(ColumnAdmin)),
		Disable:   cast.ToInt(r.Get("disable")),
		Deleted:   cast.ToInt(r.Get(ColumnDeleted)),
		EndTime:   r.Int(ColumnEndTime),
		Crdate:    r.Int(ColumnCrdate),
		Tstamp:    r.Int(ColumnTstamp),
	}
}

// PlaceholderParams hash the random passwords of directory users. Nobody ever
// verifies them, so they use far less memory than argon2id.DefaultParams.
var PlaceholderParams = &argon2id.Params{ //nolint:gochecknoglobals
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword hashes a plaintext password using the Argon2id algorithm with params.
func HashPassword(password string, params *argon2id.Params) string {
	hashedPassword, err := argon2id.CreateHash(password, params)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}
