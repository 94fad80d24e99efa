package main

import (
	"github.com/pandatales/pandatales/app/panichandler"
	"github.com/pandatales/pandatales/app/talesctl/cmd"
)

func main() {
	defer panichandler.PanicHandler()
	cmd.Execute()
}
