package main

import (
	"log"

	"zxsgit/config"
	"zxsgit/server"
)

func main() {
	config.LoadDotenv()
	cfg := config.MustLoad()
	app := &server.App{}
	if err := app.Initialize(cfg); err != nil {
		log.Fatal(err)
	}
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
