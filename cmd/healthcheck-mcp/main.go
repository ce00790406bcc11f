package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/netagent/netagent/cmd/commands"
)

func main() {
	testbed := flag.String("testbed", "", "Testbed YAML file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.HandleError(commands.RunHealthcheckServer(ctx, *testbed), "healthcheck server")
}
