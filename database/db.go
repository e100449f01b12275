package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tweetty/domain"
)

// Supported values of Config.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the connection info of the database.
type Config struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	// Name is the database name, or the database file path for sqlite.
	Name string `mapstructure:"name"`
	// DSN overrides every other connection setting when it is set.
	DSN string `mapstructure:"dsn"`
}

// ConnectionInfo builds the data source name for the configured driver.
func (c Config) ConnectionInfo() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DriverSQLite {
		return c.Name + "?_foreign_keys=1"
	}
	if c.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Password, c.Name)
}

// DB provides the database connection.
type DB struct {
	// Object-relational mapping.
	Gorm   *gorm.DB
	Config Config
}

// NewDB returns a new instance of DB.
func NewDB(config Config) *DB {
	return &DB{
		Config: config,
	}
}

// models lists every table of the app.
var models = []interface{}{
	&domain.User{},
	&domain.Tweet{},
	&domain.TweetMedia{},
	&domain.Like{},
	&domain.Follower{},
}

// Open opens a new database connection. It also configures logging
// based on whether we're in development or in production.
func Open(db *DB, isProd bool) (err error) {
	if db.Config.DSN == "" && db.Config.Name == "" {
		return fmt.Errorf("connection info required")
	}
	dsn := db.Config.ConnectionInfo()

	logLevel := logger.Info
	if isProd {
		logLevel = logger.Silent
	}
	gormConfig := &gorm.Config{
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
	}

	switch db.Config.Driver {
	case DriverSQLite:
		db.Gorm, err = gorm.Open(sqlite.Open(dsn), gormConfig)
		if err != nil {
			return fmt.Errorf("err opening gorm sqlite connection: %w", err)
		}
		// sqlite serializes writers anyway, a single connection avoids "database is locked".
		sqlDB, err := db.Gorm.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	case DriverPostgres, "":
		db.Gorm, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err != nil {
			return fmt.Errorf("err opening gorm postgres connection: %w", err)
		}
	default:
		return fmt.Errorf("unknown database driver %q", db.Config.Driver)
	}
	return nil
}

// AutoMigrate runs database migrations for all tables.
func AutoMigrate(db *DB) error {
	return db.Gorm.AutoMigrate(models...)
}

// DestructiveReset drops all tables and rebuilds them.
func DestructiveReset(db *DB) error {
	if err := db.Gorm.Migrator().DropTable(models...); err != nil {
		return err
	}
	return AutoMigrate(db)
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
