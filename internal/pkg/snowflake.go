package pkg

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// InitSnowflake startTime 格式 2006-01-02，需在启动时调用
func InitSnowflake(startTime string, machineID int64) error {
	st, err := time.Parse("2006-01-02", startTime)
	if err != nil {
		return err
	}
	snowflake.Epoch = st.UnixNano() / int64(time.Millisecond)
	n, err := snowflake.NewNode(machineID)
	if err != nil {
		return err
	}
	node = n
	return nil
}

// GenID 未初始化时使用默认纪元和 1 号节点
func GenID() int64 {
	nodeOnce.Do(func() {
		if node == nil {
			node, _ = snowflake.NewNode(1)
		}
	})
	return node.Generate().Int64()
}
