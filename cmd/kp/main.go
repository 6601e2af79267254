// kp rotates a shared pool of OAuth accounts for a quota-metered API.
package main

import (
	"os"

	"github.com/xcawolfe-amzn/kiropool/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
