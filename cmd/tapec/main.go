package main

import (
	"go.brendoncarroll.net/star"

	"tracetape.org/tracetape/tapecmd"
)

func main() {
	star.Main(tapecmd.Root())
}
