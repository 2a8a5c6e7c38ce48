package main

import (
	"github.com/bmcfanctl/bmcfanctl/cmd"
)

func main() {
	cmd.Execute()
}
