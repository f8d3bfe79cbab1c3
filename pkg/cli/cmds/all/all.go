// Package all registers every command provider.
package all

import (
	_ "github.com/mahendrakumarshinde/iu.go/pkg/cli/cmds/bench"
)
