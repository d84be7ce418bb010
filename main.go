// The main package for the portfolio-digest executable.
package main

import (
	"os"

	"github.com/JakeFAU/vc-portfolio-digest/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
