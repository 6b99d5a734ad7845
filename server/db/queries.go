package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/Sprinter05/duochat/internal/log"
	"gorm.io/gorm"
)

/* QUERIES */

// Returns a database user according to their username
func QueryUser(db *gorm.DB, uname string) (*User, error) {
	var user User
	res := db.Where("username = ?", uname).Take(&user)
	if res.Error != nil {
		// Abstract with errors of the db package
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrorNotFound
		}

		log.DBError(res.Error)
		return nil, res.Error
	}

	return &user, nil
}

// Returns a database user according to their id
func QueryUserByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	res := db.Where("id = ?", id).Take(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrorNotFound
		}

		log.DBError(res.Error)
		return nil, res.Error
	}

	return &user, nil
}

// Returns the usernames of every user except the one
// given, sorted alphabetically. An empty slice is
// not an error.
func QueryUsernames(db *gorm.DB, excluding uint) ([]string, error) {
	names := make([]string, 0)
	res := db.Model(&User{}).Where(
		"id <> ?", excluding,
	).Order("username ASC").Pluck("username", &names)

	if res.Error != nil {
		log.DBError(res.Error)
		return nil, res.Error
	}

	return names, nil
}

// Returns the messages exchanged between two users in both
// directions, at most limit of them. If there are more the
// newest ones are kept. Result is always sorted by id in
// ascending order, which is the order they were sent in.
func QueryHistory(db *gorm.DB, a uint, b uint, limit int) ([]Message, error) {
	msgs := make([]Message, 0, limit)
	res := db.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		a, b, b, a,
	).Order("id DESC").Limit(limit).Find(&msgs)

	if res.Error != nil {
		log.DBError(res.Error)
		return nil, res.Error
	}

	// Newest first so it has to be reversed
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	for i := range msgs {
		msgs[i].CreatedAt = stamp(msgs[i].CreatedAt)
	}

	return msgs, nil
}

/* INSERTIONS */

// Inserts a user into the database, failing with ErrorDuplicatedKey
// if the username is already taken. Uniqueness is only decided
// by the database constraint.
func InsertUser(db *gorm.DB, uname string, hash sql.NullString) (*User, error) {
	if !validUsername(uname) {
		return nil, gorm.ErrInvalidValue
	}

	user := User{
		Username: uname,
		Password: hash,
	}

	res := db.Create(&user)
	if res.Error != nil {
		// Abstract gorm database error
		if isDuplicate(res.Error) {
			return nil, ErrorDuplicatedKey
		}

		log.DBError(res.Error)
		return nil, res.Error
	}

	return &user, nil
}

// Stores a message, assigning its id. The timestamp
// is truncated to the second.
func InsertMessage(db *gorm.DB, src uint, dst uint, text string, at time.Time) (*Message, error) {
	msg := Message{
		SenderID:   src,
		ReceiverID: dst,
		Text:       text,
		CreatedAt:  stamp(at),
	}

	res := db.Omit("Sender", "Receiver").Create(&msg)
	if res.Error != nil {
		log.DBError(res.Error)
		return nil, res.Error
	}

	return &msg, nil
}

/* UPDATES */

// Sets the password hash of an account that has none,
// returns ErrorNotFound if no such account exists
// or it already has a hash.
func SetPassword(db *gorm.DB, id uint, hash string) error {
	res := db.Model(&User{}).Where(
		"id = ? AND password IS NULL", id,
	).Update("password", hash)

	if res.Error != nil {
		log.DBError(res.Error)
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrorNotFound
	}

	return nil
}
