package testutils

import (
	"context"
	"os"

	pgxsession "github.com/krew-solutions/ascetic-props-go/asceticprops/session/pgx"
)

// NewPgSessionPool connects to the integration database described by DB_* env.
func NewPgSessionPool() (*pgxsession.SessionPool, error) {
	var dbUsername = getEnv("DB_USERNAME", "devel")
	var dbPassword = getEnv("DB_PASSWORD", "devel")
	var dbHost = getEnv("DB_HOST", "localhost")
	var dbPort = getEnv("DB_PORT", "5432")
	var dbBasename = getEnv("DB_DATABASE", "devel_props")

	connString := "postgres://" + dbUsername + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbBasename

	return pgxsession.Connect(context.Background(), connString)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}
