package main

import (
	"log"
	"os"
	stdos "os"
)

func helper() {
	os.Exit(2)
}

func main() {
	defer helper()

	os.Exit(1)          // want `avoid calling os.Exit in main.main`
	stdos.Exit(1)       // want `avoid calling os.Exit in main.main`
	log.Fatal("boom")   // want `avoid calling log.Fatal in main.main`
	log.Fatalf("%d", 1) // want `avoid calling log.Fatalf in main.main`

	logger := log.New(os.Stderr, "", 0)
	logger.Fatal("method calls are not reported")

	go func() {
		os.Exit(3)
	}()
}
