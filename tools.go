//go:build tools

package classroom

import (
	_ "go.uber.org/mock/mockgen"
)
