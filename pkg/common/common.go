package common

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// SetNodeID selects the snowflake node. It must run before the first id is issued;
// later calls are ignored.
func SetNodeID(id int64) {
	nodeOnce.Do(func() {
		n, err := snowflake.NewNode(id % 1024)
		if err != nil {
			panic(err)
		}
		node = n
	})
}

// UUIDint64 returns a unique, time ordered id.
func UUIDint64() int64 {
	SetNodeID(1)
	return node.Generate().Int64()
}

// UUID returns UUIDint64 in decimal form.
func UUID() string {
	return strconv.FormatInt(UUIDint64(), 10)
}
