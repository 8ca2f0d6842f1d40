package uid

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates 63-bit ids that sort by creation time.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator whose node number is derived from the host
// name, so replicas behind a load balancer rarely collide.
func NewSnowflake() (*Snowflake, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	h := fnv.New32a()
	//nolint:errcheck // hash.Hash never returns an error
	h.Write([]byte(host))

	return NewSnowflakeNode(int64(h.Sum32() % 1024))
}

// NewSnowflakeNode creates a generator for an explicit node number (0..1023).
func NewSnowflakeNode(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
