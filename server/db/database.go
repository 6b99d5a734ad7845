// Storage of users and messages through gorm, using
// MySQL in production and SQLite by default and in tests.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdlog "log"
	"net/url"
	"strings"
	"time"

	"github.com/Sprinter05/duochat/internal/log"
	"github.com/Sprinter05/duochat/internal/spec"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/* ERRORS */

var (
	ErrorNotFound      error = errors.New("record not found")           // no rows matched
	ErrorDuplicatedKey error = errors.New("unique constraint violated") // row already exists
	ErrorInvalidURL    error = errors.New("invalid database url")       // unsupported scheme or shape
)

/* MODELS */

// Identifies the model of a user in the database,
// a NULL password belongs to accounts created
// before passwords were hashed.
type User struct {
	ID       uint           `gorm:"primaryKey;autoIncrement;not null"`
	Username string         `gorm:"unique;not null;size:50"`
	Password sql.NullString `gorm:"size:255"`
}

// Identifies the model of a message in the database
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement;not null"`
	SenderID   uint      `gorm:"not null;index:idx_dialog;check:sender_id <> receiver_id"`
	ReceiverID uint      `gorm:"not null;index:idx_dialog"`
	Text       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
	Sender     User      `gorm:"foreignKey:SenderID;constraint:OnDelete:RESTRICT"`
	Receiver   User      `gorm:"foreignKey:ReceiverID;constraint:OnDelete:RESTRICT"`
}

/* CONNECTION */

// Turns a mysql:// url into a driver DSN.
func mysqlDSN(u *url.URL) (string, error) {
	name := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || name == "" {
		return "", ErrorInvalidURL
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	q := u.Query()
	if len(q) > 0 {
		cfg.Params = make(map[string]string, len(q))
		for k := range q {
			cfg.Params[k] = q.Get(k)
		}
	}

	return cfg.FormatDSN(), nil
}

// Returns the dialector that corresponds to the scheme of the url.
func dialector(dburl string) (gorm.Dialector, error) {
	scheme, rest, ok := strings.Cut(dburl, "://")
	if !ok || rest == "" {
		return nil, ErrorInvalidURL
	}

	switch scheme {
	case "sqlite", "sqlite3":
		return sqlite.Open(rest), nil
	case "mysql":
		u, err := url.Parse(dburl)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrorInvalidURL, err)
		}
		dsn, err := mysqlDSN(u)
		if err != nil {
			return nil, err
		}
		return mysqldriver.New(mysqldriver.Config{
			DSN: dsn,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrorInvalidURL, scheme)
	}
}

// Connects to the database in the url and runs migrations.
// Statements are logged to the given logger if not nil.
func Connect(dburl string, logfile *stdlog.Logger) (*gorm.DB, error) {
	dial, err := dialector(dburl)
	if err != nil {
		return nil, err
	}

	dblog := logger.Discard
	if logfile != nil {
		dblog = logger.New(
			logfile,
			logger.Config{
				LogLevel:             logger.Info,
				ParameterizedQueries: true,
			},
		)
	}

	db, err := gorm.Open(
		dial,
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         dblog,
			NowFunc: func() time.Time {
				return time.Now().UTC().Truncate(time.Second)
			},
		},
	)
	if err != nil {
		return nil, err
	}

	// SQLite only allows one writer
	if db.Dialector.Name() == "sqlite" {
		sqldb, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Runs migrations for the database
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "mysql" {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}

	err := db.AutoMigrate(&User{}, &Message{})
	if err != nil {
		log.DBError(err)
		return err
	}

	return nil
}

// Checks that the database is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqldb, err := db.DB()
	if err != nil {
		return err
	}
	return sqldb.PingContext(ctx)
}

// Closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqldb, err := db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}

/* ERROR TRANSLATION */

// Reports whether an error comes from a unique constraint.
// gorm translates most of them but drivers may still
// surface their own error types.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myerr *mysql.MySQLError
	if errors.As(err, &myerr) {
		return myerr.Number == 1062
	}

	var sqerr sqlite3.Error
	if errors.As(err, &sqerr) {
		return sqerr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}

// Timestamps as they are stored and sent.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Usernames must fit in their column.
func validUsername(name string) bool {
	return name != "" && len([]rune(name)) <= spec.UsernameSize
}
