package main

import (
	"os"

	"github.com/josephlewis42/pipegate/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
