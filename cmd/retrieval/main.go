// Package main is the entry point for the Provenance Retrieval Service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/provenance/cmd/retrieval/app"
)

func main() {
	app.NewApp().Run()
}
