package main

import (
	"os"

	"github.com/sitemaptools/sitemapctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
