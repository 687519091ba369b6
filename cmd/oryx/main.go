package main

import (
	"os"

	"github.com/Microsoft/Oryx-sub000/cmd/oryx/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
