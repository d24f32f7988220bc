// migrate применяет встроенные SQL-миграции: go run ./cmd/migrate -direction up.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pribylovaa/go-session-auth/migrations"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	dsn := flag.String("db", os.Getenv("DATABASE_URL"), "postgres url (default $DATABASE_URL)")
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; pass -db or set DATABASE_URL")
		os.Exit(1)
	}

	if err := migrations.Run(*dsn, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
