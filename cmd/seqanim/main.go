package main

import (
	"seqanim/lib/xmain"
	"seqanim/seqcli"
)

func main() {
	xmain.Main(seqcli.Run)
}
