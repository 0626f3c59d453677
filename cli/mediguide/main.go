package main

import (
	"os"

	mediguidecmder "github.com/mediguideco/mediguide/cmd/mediguide"
)

func main() {
	cmd := mediguidecmder.NewMediguideCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
