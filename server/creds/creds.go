// Registration and authentication of accounts. Passwords are
// keyed with the server secret and hashed with bcrypt, plaintext
// is never stored or logged.
package creds

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Public information of an account.
type User struct {
	ID       uint
	Username string
}

// Credential store backed by the database.
type Store struct {
	db       *gorm.DB
	cost     int
	secret   []byte
	backfill bool
	dummy    []byte // Compared against when there is no hash to check
}

// Creates a credential store. If backfill is set, logging into an
// account without a stored hash sets the supplied password as its own.
func New(database *gorm.DB, cost int, secret string, backfill bool) *Store {
	s := &Store{
		db:       database,
		cost:     cost,
		secret:   []byte(secret),
		backfill: backfill,
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("duochat"), cost)
	if err != nil {
		log.Error("dummy hash generation", err)
	}
	s.dummy = dummy

	return s
}

/* HELPERS */

// Usernames are compared trimmed and lowercased.
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Wraps an unexpected database error so it
// is reported as a storage failure.
func storageError(err error) error {
	return fmt.Errorf("%w: %s", spec.ErrorStorage, err)
}

// Keys the password with the secret so inputs longer than
// what bcrypt reads are still told apart.
func (s *Store) key(password string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(password))
	return []byte(hex.EncodeToString(mac.Sum(nil)))
}

func (s *Store) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(s.key(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (s *Store) verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), s.key(password)) == nil
}

// Spends the same time as verifying a real hash so
// failures do not tell whether the account exists.
func (s *Store) burn(password string) {
	bcrypt.CompareHashAndPassword(s.dummy, s.key(password))
}

// Returns the normalized credentials or a validation error.
func checkArgs(username string, password string) (string, string, error) {
	name := Normalize(username)
	pswd := strings.TrimSpace(password)

	if name == "" || pswd == "" {
		return "", "", spec.Errorf(spec.ErrorValidation, "username & password required")
	}

	if len([]rune(name)) > spec.UsernameSize {
		return "", "", spec.Errorf(spec.ErrorValidation, "username too long (<= %d)", spec.UsernameSize)
	}

	return name, pswd, nil
}

/* OPERATIONS */

// Creates an account and returns its id. Whether the username
// is taken is only decided by the database, so two concurrent
// registrations of the same name cannot both succeed.
func (s *Store) Register(ctx context.Context, username string, password string) (uint, error) {
	name, pswd, err := checkArgs(username, password)
	if err != nil {
		return 0, err
	}

	hash, err := s.hash(pswd)
	if err != nil {
		log.Error("password hashing", err)
		return 0, fmt.Errorf("%w: %s", spec.ErrorServer, err)
	}

	user, err := db.InsertUser(
		s.db.WithContext(ctx),
		name,
		sql.NullString{String: hash, Valid: true},
	)
	if err != nil {
		if errors.Is(err, db.ErrorDuplicatedKey) {
			return 0, spec.ErrorDuplicate
		}
		return 0, storageError(err)
	}

	return user.ID, nil
}

// Checks a username and password, returning the id of the account.
// Unknown users fail with ErrorNotFound and wrong passwords with
// ErrorCredentials.
func (s *Store) Authenticate(ctx context.Context, username string, password string) (uint, error) {
	name, pswd, err := checkArgs(username, password)
	if err != nil {
		return 0, err
	}

	gdb := s.db.WithContext(ctx)
	user, err := db.QueryUser(gdb, name)
	if err != nil {
		if errors.Is(err, db.ErrorNotFound) {
			s.burn(pswd)
			return 0, spec.ErrorNotFound
		}
		return 0, storageError(err)
	}

	if user.Password.Valid {
		if !s.verify(user.Password.String, pswd) {
			return 0, spec.ErrorCredentials
		}
		return user.ID, nil
	}

	// Account without a hash
	if !s.backfill {
		s.burn(pswd)
		return 0, spec.ErrorCredentials
	}

	hash, err := s.hash(pswd)
	if err != nil {
		log.Error("password hashing", err)
		return 0, fmt.Errorf("%w: %s", spec.ErrorServer, err)
	}

	err = db.SetPassword(gdb, user.ID, hash)
	if err != nil {
		if errors.Is(err, db.ErrorNotFound) {
			// Someone else set it first
			return 0, spec.ErrorCredentials
		}
		return 0, storageError(err)
	}

	log.Notice("stored missing password hash for " + name)
	return user.ID, nil
}

// Finds an account by username, the boolean is false if
// it does not exist.
func (s *Store) Lookup(ctx context.Context, username string) (User, bool, error) {
	name := Normalize(username)
	if name == "" {
		return User{}, false, nil
	}

	user, err := db.QueryUser(s.db.WithContext(ctx), name)
	if err != nil {
		if errors.Is(err, db.ErrorNotFound) {
			return User{}, false, nil
		}
		return User{}, false, storageError(err)
	}

	return User{ID: user.ID, Username: user.Username}, true, nil
}

// Finds an account by id.
func (s *Store) Get(ctx context.Context, id uint) (User, error) {
	user, err := db.QueryUserByID(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, db.ErrorNotFound) {
			return User{}, spec.ErrorNotFound
		}
		return User{}, storageError(err)
	}

	return User{ID: user.ID, Username: user.Username}, nil
}

// Lists every username except the given account, sorted.
func (s *Store) ListOthers(ctx context.Context, excluding uint) ([]string, error) {
	names, err := db.QueryUsernames(s.db.WithContext(ctx), excluding)
	if err != nil {
		return nil, storageError(err)
	}
	return names, nil
}
