package config

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreSpanner  = "spanner"
)

// StoreSettings selects the durable key-value backend for the queue mirror.
type StoreSettings struct {
	Type       string `mapstructure:"type" validate:"required,oneof=memory file postgres mongo spanner"`
	Path       string `mapstructure:"path" validate:"required_if=Type file"`
	DSN        string `mapstructure:"dsn" validate:"required_if=Type postgres"`
	URI        string `mapstructure:"uri" validate:"required_if=Type mongo,required_if=Type spanner"`
	Database   string `mapstructure:"database" validate:"required_if=Type mongo"`
	Collection string `mapstructure:"collection"`
}
