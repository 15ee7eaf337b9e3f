package main

import (
	"os"

	"github.com/quorumgit/quorum/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
