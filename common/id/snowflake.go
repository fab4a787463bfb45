package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID. The server and the
// feedback worker must run with distinct node IDs.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a time-ordered int64 ID. Used to correlate the log lines of one
// inbound webhook request. Falls back to node 0 when Init was never called.
func New() int64 {
	if node == nil {
		_ = Init(0)
	}
	return node.Generate().Int64()
}

// NewString returns New formatted in base 10, for headers and stream fields.
func NewString() string {
	return strconv.FormatInt(New(), 10)
}
