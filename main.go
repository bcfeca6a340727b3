package main

import (
	"os"

	"github.com/ldapsso/ldapsso/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
