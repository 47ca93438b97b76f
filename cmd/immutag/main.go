// Command immutag manages a project registry of identities and the file
// annotations each identity keeps in its metadata document.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/immutag/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// Commands report ExitErrors through their formatter already.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
