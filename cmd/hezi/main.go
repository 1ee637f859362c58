package main

import (
	"context"
	"log"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/hezi/internal/cmd"
	"github.com/nguyengg/hezi/internal/config"
)

func main() {
	log.SetFlags(0)

	p, err := cmd.NewParser()
	if err != nil {
		log.Fatalf("create parser error: %v", err)
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		if name, err := config.Load(context.Background()); err != nil {
			log.Printf(`load config "%s" error: %v`, name, err)
		}

		return command.Execute(args)
	}

	_, err = p.Parse()
	exit(err)
}
