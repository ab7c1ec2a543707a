package clmm_simulator

import (
	"fmt"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Simulator replays pool event streams into CorePool state and persists the
// result. Pools touched since the last flush are tracked as dirty and written
// out together in one transaction.
type Simulator struct {
	pools      map[string]*CorePool
	dirtyPools map[string]*CorePool
	db         *gorm.DB
	dbfile     string
}

func NewSimulator(dbFile string) (*Simulator, error) {
	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	pm := &Simulator{
		pools:      map[string]*CorePool{},
		dirtyPools: map[string]*CorePool{},
		db:         db,
		dbfile:     dbFile,
	}
	err = db.AutoMigrate(&CorePool{})
	if err != nil {
		return nil, err
	}
	var currentPools []*CorePool
	err = db.Find(&currentPools).Error
	if err != nil {
		return nil, err
	}
	for _, pool := range currentPools {
		pm.pools[pool.PoolId] = pool
	}
	return pm, nil
}

func (pm *Simulator) GetPool(poolId string) (*CorePool, bool) {
	pool, ok := pm.pools[poolId]
	return pool, ok
}

func (pm *Simulator) InitPool(event *InitializeEvent) (*CorePool, error) {
	poolId := event.Raw.PoolId
	if _, exist := pm.pools[poolId]; exist {
		return nil, fmt.Errorf("pool exists %s", poolId)
	}
	logrus.Infof("initialize pool: %s, tx: %s, price: %s", poolId, event.Raw.TxId, event.SqrtPrice)
	pool := NewCorePoolFromConfig(poolId, PoolConfig{
		TickSpacing: event.TickSpacing,
		TokenA:      event.TokenA,
		TokenB:      event.TokenB,
		FeeRate:     event.FeeRate,
	})
	err := pool.Initialize(event.SqrtPrice)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// HandleEvent replays one event record. Records that fail to parse or arrive
// before their pool's initialize are logged and skipped; execution failures
// are returned since the pool state can no longer be trusted to follow the
// stream.
func (pm *Simulator) HandleEvent(record *EventRecord) error {
	parsed, err := ParseEventRecord(record)
	if err != nil {
		logrus.Warnf("failed parse event, tx: %s pool: %s, %s", record.TxId, record.PoolId, err)
		return nil
	}
	switch event := parsed.(type) {
	case *InitializeEvent:
		pool, err := pm.InitPool(event)
		if err != nil {
			logrus.Error(err)
			return err
		}
		pool.DeploySeq = record.Seq
		pool.CurrentSeq = record.Seq
		pm.pools[pool.PoolId] = pool
		pm.dirtyPools[pool.PoolId] = pool
	case *AddLiquidityEvent:
		pool, ok := pm.pools[record.PoolId]
		if !ok {
			logrus.Warnf("add_liquidity before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		_, _, err = pool.AddLiquidity(event.Owner, event.TickLower, event.TickUpper, event.Liquidity)
		if err != nil {
			logrus.Errorf("failed execute add_liquidity event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
		pm.dirtyPools[pool.PoolId] = pool
	case *RemoveLiquidityEvent:
		pool, ok := pm.pools[record.PoolId]
		if !ok {
			logrus.Warnf("remove_liquidity before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		_, _, err = pool.RemoveLiquidity(event.Owner, event.TickLower, event.TickUpper, event.Liquidity)
		if err != nil {
			logrus.Errorf("failed execute remove_liquidity event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
		pm.dirtyPools[pool.PoolId] = pool
	case *CollectEvent:
		pool, ok := pm.pools[record.PoolId]
		if !ok {
			logrus.Warnf("collect before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		_, _, err = pool.CollectFees(event.Owner, event.TickLower, event.TickUpper, event.AmountA, event.AmountB)
		if err != nil {
			logrus.Errorf("failed execute collect event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
		pm.dirtyPools[pool.PoolId] = pool
	case *SwapEvent:
		pool, ok := pm.pools[record.PoolId]
		if !ok {
			logrus.Warnf("swap before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		result, err := pool.ExecuteSwap(event.AToB, true, event.AmountIn)
		if err != nil {
			logrus.Errorf("failed execute swap event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		// observed values are advisory; the simulation stays authoritative
		if !result.AmountOut.Equal(event.AmountOut) {
			logrus.Warnf("swap diverged, tx: %s pool: %s, amount out %s, expected %s", record.TxId, record.PoolId, result.AmountOut, event.AmountOut)
		}
		if !event.SqrtPrice.IsZero() && !result.NextSqrtPrice.Equal(event.SqrtPrice) {
			logrus.Warnf("swap diverged, tx: %s pool: %s, price %s, expected %s", record.TxId, record.PoolId, result.NextSqrtPrice, event.SqrtPrice)
		}
		pool.CurrentSeq = record.Seq
		pm.dirtyPools[pool.PoolId] = pool
	case *AccrueRewardEvent:
		pool, ok := pm.pools[record.PoolId]
		if !ok {
			logrus.Warnf("accrue_reward before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		err = pool.AccrueReward(event.RewarderIndex, event.GrowthDelta)
		if err != nil {
			logrus.Errorf("failed execute accrue_reward event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
		pm.dirtyPools[pool.PoolId] = pool
	default:
		return fmt.Errorf("unhandled event type %s, tx: %s", record.EventType, record.TxId)
	}
	return nil
}

func (pm *Simulator) HandleEvents(records []*EventRecord) error {
	for _, record := range records {
		err := pm.HandleEvent(record)
		if err != nil {
			return err
		}
	}
	return nil
}

// HandleRecord replays a journaled action, usually one picked off a fork,
// against the live pool.
func (pm *Simulator) HandleRecord(poolId string, record *Record) error {
	pool, ok := pm.pools[poolId]
	if !ok {
		return fmt.Errorf("pool not exists %s", poolId)
	}
	err := applyRecord(pool, record)
	if err != nil {
		return err
	}
	pm.dirtyPools[pool.PoolId] = pool
	return nil
}

// MaxProcessedSeq returns the highest event seq any persisted pool has
// reached, 0 when the database holds no pools yet. Event replay resumes from
// the next seq after a restart.
func (pm *Simulator) MaxProcessedSeq() (uint64, error) {
	var lastSeq *uint64
	err := pm.db.Model(&CorePool{}).Select("max(current_seq) as last_seq").Scan(&lastSeq).Error
	if err != nil {
		return 0, err
	}
	if lastSeq == nil {
		return 0, nil
	}
	return *lastSeq, nil
}

func (pm *Simulator) FlushPools() error {
	err := pm.db.Transaction(func(tx *gorm.DB) error {
		for _, pool := range pm.dirtyPools {
			err := pool.Flush(tx)
			if err != nil {
				logrus.Errorf("failed flush pool %s", err)
				return err
			}
			logrus.Infof("flush pool: %s", pool.PoolId)
		}
		return nil
	})
	if err != nil {
		logrus.Warnf("failed save pools %s", err)
		return err
	}
	pm.dirtyPools = map[string]*CorePool{}
	return nil
}

// ForkPool clones one pool for what-if simulation. The caller states the seq
// it believes the pool is at; a mismatch means the fork would not represent
// the state the caller reasoned about.
func (pm *Simulator) ForkPool(seq uint64, poolId string) (*CorePool, error) {
	pool, ok := pm.pools[poolId]
	if !ok {
		return nil, fmt.Errorf("pool not exists %s", poolId)
	}
	if pool.CurrentSeq != seq {
		return nil, fmt.Errorf("simulation req at %d , but pool synced to %d", seq, pool.CurrentSeq)
	}
	return pool.Clone(), nil
}
