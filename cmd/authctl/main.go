package main

import (
	"log"
	"os"

	"github.com/dmitrijs2005/senas-auth/internal/authctl"
	"github.com/dmitrijs2005/senas-auth/internal/cryptox"
)

func main() {
	app := authctl.NewApp(os.Stdout, os.Stderr, cryptox.DefaultParams)
	if err := app.Run(os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}
