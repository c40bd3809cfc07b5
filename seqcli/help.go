package seqcli

import (
	"fmt"
	"path/filepath"

	"seqanim/lib/version"
	"seqanim/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s [--watch=false] [--page=name] file.drawio [file.txt]
  %[1]s check file.txt
  %[1]s pages file.drawio
  %[1]s config

%[1]s reads the UML sequence diagram on layer SqD and the class diagram on layer CD of a
draw.io document and writes an animation script replaying the interaction to file.txt.
It defaults to file.txt next to the input if an output path is not provided.

Use - to have %[1]s read from stdin or write to stdout.

Flags:
%[3]s

Subcommands:
  %[1]s check file.txt - Parses a script and verifies every highlight and link is undone
  %[1]s pages file.drawio - Lists the pages of a document
  %[1]s config - Prints the effective configuration as TOML
  %[1]s version - Prints the version
`, filepath.Base(ms.Name), version.Version, ms.Opts.Help())
}
