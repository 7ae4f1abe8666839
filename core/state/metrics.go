package state

import "github.com/eth2030/shyftvm/metrics"

var (
	checkpointCounter = metrics.DefaultRegistry.Counter("state.checkpoints")
	commitCounter     = metrics.DefaultRegistry.Counter("state.commits")
	revertCounter     = metrics.DefaultRegistry.Counter("state.reverts")
	flushCounter      = metrics.DefaultRegistry.Counter("state.flushes")
	ioErrorCounter    = metrics.DefaultRegistry.Counter("state.io_errors")
	blockHashHits     = metrics.DefaultRegistry.Counter("state.blockhash_cache_hits")
	blockHashMisses   = metrics.DefaultRegistry.Counter("state.blockhash_cache_misses")
	checkpointDepth   = metrics.DefaultRegistry.Gauge("state.checkpoint_depth")
)
