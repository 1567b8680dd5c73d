// Package main starts the collaboration rooms service and handles termination.
package main

import (
	"flag"
	"log"
	"os"

	roomscmd "github.com/louisbranch/classroom.space/internal/cmd/rooms"
	entrypoint "github.com/louisbranch/classroom.space/internal/platform/cmd"
)

func main() {
	cfg, err := roomscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	ctx, stop := entrypoint.SignalContext(entrypoint.ServiceRooms)
	defer stop()

	if err := roomscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
