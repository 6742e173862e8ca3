package cnst

const (
	AppName     = "workbench"
	CommandName = "workbench"
)

// RedisClusterType values accepted by relay.redis.cluster_type
const (
	RedisClusterTypeSingle   = "single"
	RedisClusterTypeSentinel = "sentinel"
	RedisClusterTypeCluster  = "cluster"
)
