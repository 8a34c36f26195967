package parser

import (
	"github.com/gnana997/propgen/pkg/util"
)

// getDefaultPoolSize sizes parser pools like the scanner's worker pool so a
// worker never waits on a parser.
func getDefaultPoolSize() int {
	return util.GetOptimalPoolSize()
}
