package main

import (
	"log"

	"github.com/prepnest/prepnest-api/app"
)

func main() {
	if err := app.SetupAndRunServer(); err != nil {
		log.Fatal(err)
	}
}
