// Command essays serves the essay sharing API.
package main

import (
	"github.com/patric-chuzhbe/essayshare/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		panic(err)
	}
}
