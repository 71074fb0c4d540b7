package cmd

import (
	"fmt"
	"io"
)

const banner = `
   ___        _   _
  / _ \ _ __ | |_(_)_   ____ _
 | | | | '_ \| __| \ \ / / _` + "`" + ` |
 | |_| | |_) | |_| |\ V / (_| |
  \___/| .__/ \__|_| \_/ \__,_|
       |_|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Lifestyle Tracker Client - Version %s\x1b[0m\n\n", Version)
}
