// Command peardb runs the legacy PEAR DB helpers against a live database and
// prints their results as JSON.
//
// Usage:
//
//	peardb --driver mysql --dsn 'tcp(localhost:3306)/app' --user app one 'SELECT COUNT(*) FROM users'
//	peardb assoc 'SELECT id, name FROM users WHERE team = ?' core
//	peardb insert users --set name=alice --set team=core
//	peardb update users --set team=infra --where 'id = 7'
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, connect).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
