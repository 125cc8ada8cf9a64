package cli

import (
	"fmt"
	"io"
)

const appName = "go-dvdchapters"

var appVersion = "dev"

func SetVersion(version string) {
	if version != "" {
		appVersion = version
	}
}

func Version(stdout io.Writer) {
	fmt.Fprintf(stdout, "%s, version %s\n", appName, appVersion)
}
