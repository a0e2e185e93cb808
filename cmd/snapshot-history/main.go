// Command snapshot-history prints the audit history of one object as JSON.
//
// Usage:
//
//	snapshot-history -config snapshotstore.yaml -type Employee -id bob [-fragment address -vo-type Address] [-aggregate] [-limit 20]
//	snapshot-history -config snapshotstore.yaml -type Employee -id bob -latest -commit-props
//
// The database settings come from the config file and the SNAPSHOTSTORE_* environment variables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)

	stop()
	os.Exit(exitCode)
}
