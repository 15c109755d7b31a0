//go:build tools

// Package tools pins code generators used by go:generate.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
