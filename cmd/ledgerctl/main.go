// Command ledgerctl reads and writes the ledger from the terminal, against
// the same backend the server is configured with.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"backoffice/internal/cli"

	"github.com/google/subcommands"
)

var (
	backendFlag = flag.String("backend", "", "Data backend (memory, sqlite). Defaults to DATA_BACKEND.")
	dbFlag      = flag.String("db", "", "SQLite database path. Defaults to SQLITE_DB_PATH.")
	seedFlag    = flag.String("seed", "", "Seed directory for the memory backend. Defaults to SEED_DIR.")
	levelFlag   = flag.String("log", "warn", "Log level.")
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&ledgerCmd{}, "read")
	commander.Register(&accountsCmd{}, "read")
	commander.Register(&categoriesCmd{}, "read")
	commander.Register(&payCmd{}, "write")
	commander.Register(&transferCmd{}, "write")
	commander.Register(&deleteCmd{}, "write")
	commander.Register(&importCmd{}, "admin")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
