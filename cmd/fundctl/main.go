package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/fundkeeper/internal/fundctl"
	"github.com/dmitrijs2005/fundkeeper/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := fundctl.NewApp(cfg, os.Stdin, os.Stdout)

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}
