package clmm_simulator

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"time"
)

type InitializeParams struct {
	SqrtPrice decimal.Decimal
}

type ModifyPositionParams struct {
	Owner     string
	TickLower int
	TickUpper int
	Liquidity decimal.Decimal
}

type CollectParams struct {
	Owner            string
	TickLower        int
	TickUpper        int
	AmountARequested decimal.Decimal
	AmountBRequested decimal.Decimal
}

type SwapParams struct {
	AToB       bool
	ByAmountIn bool
	Amount     decimal.Decimal
}

type AccrueRewardParams struct {
	RewarderIndex int
	GrowthDelta   decimal.Decimal
}

type ForkParams struct {
	SourceSeq uint64
}

func applyRecord(pool *CorePool, record *Record) error {
	switch record.ActionType {
	case INITIALIZE:
		params, ok := record.Params.(InitializeParams)
		if !ok {
			return fmt.Errorf("record %s: bad params for %s", record.Id, record.ActionType)
		}
		return pool.Initialize(params.SqrtPrice)
	case ADD_LIQUIDITY:
		params, ok := record.Params.(ModifyPositionParams)
		if !ok {
			return fmt.Errorf("record %s: bad params for %s", record.Id, record.ActionType)
		}
		_, _, err := pool.AddLiquidity(params.Owner, params.TickLower, params.TickUpper, params.Liquidity)
		return err
	case REMOVE_LIQUIDITY:
		params, ok := record.Params.(ModifyPositionParams)
		if !ok {
			return fmt.Errorf("record %s: bad params for %s", record.Id, record.ActionType)
		}
		_, _, err := pool.RemoveLiquidity(params.Owner, params.TickLower, params.TickUpper, params.Liquidity)
		return err
	case COLLECT:
		params, ok := record.Params.(CollectParams)
		if !ok {
			return fmt.Errorf("record %s: bad params for %s", record.Id, record.ActionType)
		}
		_, _, err := pool.CollectFees(params.Owner, params.TickLower, params.TickUpper, params.AmountARequested, params.AmountBRequested)
		return err
	case SWAP:
		params, ok := record.Params.(SwapParams)
		if !ok {
			return fmt.Errorf("record %s: bad params for %s", record.Id, record.ActionType)
		}
		_, err := pool.ExecuteSwap(params.AToB, params.ByAmountIn, params.Amount)
		return err
	case ACCRUE_REWARD:
		params, ok := record.Params.(AccrueRewardParams)
		if !ok {
			return fmt.Errorf("record %s: bad params for %s", record.Id, record.ActionType)
		}
		return pool.AccrueReward(params.RewarderIndex, params.GrowthDelta)
	case FORK:
		return nil
	default:
		return fmt.Errorf("record %s: unknown action type %s", record.Id, record.ActionType)
	}
}

// SimulatorFork is a what-if overlay on a Simulator: pools are cloned in
// lazily on first touch and every explicit action is journaled, so a chosen
// line of play can later be replayed onto the live pools. Nothing a fork does
// reaches the simulator or the database.
type SimulatorFork struct {
	Id        string
	Pools     map[string]*CorePool
	Records   map[string][]*Record
	simulator *Simulator
}

func NewSimulatorFork(s *Simulator) *SimulatorFork {
	return &SimulatorFork{
		Id:        uuid.NewString(),
		Pools:     map[string]*CorePool{},
		Records:   map[string][]*Record{},
		simulator: s,
	}
}

func (s *SimulatorFork) GetPool(poolId string) (*CorePool, error) {
	if _, ok := s.Pools[poolId]; !ok {
		pool, ok := s.simulator.GetPool(poolId)
		if !ok {
			return nil, fmt.Errorf("pool not exists %s", poolId)
		}
		forked := pool.Clone()
		s.Pools[poolId] = forked
		s.record(poolId, FORK, ForkParams{SourceSeq: pool.CurrentSeq}, ZERO, ZERO)
	}
	return s.Pools[poolId], nil
}

func (s *SimulatorFork) record(poolId string, actionType ActionType, params interface{}, amountA, amountB decimal.Decimal) {
	s.Records[poolId] = append(s.Records[poolId], &Record{
		Id:         uuid.NewString(),
		ActionType: actionType,
		Params:     params,
		AmountA:    amountA,
		AmountB:    amountB,
		Timestamp:  time.Now(),
	})
}

// Quote runs a swap simulation against the fork's view of the pool. No state
// changes, nothing is journaled.
func (s *SimulatorFork) Quote(poolId string, aToB bool, byAmountIn bool, amount decimal.Decimal) (*SwapResult, error) {
	pool, err := s.GetPool(poolId)
	if err != nil {
		return nil, err
	}
	return pool.Quote(aToB, byAmountIn, amount)
}

func (s *SimulatorFork) Swap(poolId string, aToB bool, byAmountIn bool, amount decimal.Decimal) (*SwapResult, error) {
	pool, err := s.GetPool(poolId)
	if err != nil {
		return nil, err
	}
	result, err := pool.ExecuteSwap(aToB, byAmountIn, amount)
	if err != nil {
		return nil, err
	}
	amountA, amountB := result.AmountOut, result.AmountIn
	if aToB {
		amountA, amountB = result.AmountIn, result.AmountOut
	}
	s.record(poolId, SWAP, SwapParams{AToB: aToB, ByAmountIn: byAmountIn, Amount: amount}, amountA, amountB)
	return result, nil
}

func (s *SimulatorFork) AddLiquidity(poolId string, owner string, tickLower int, tickUpper int, liquidity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	pool, err := s.GetPool(poolId)
	if err != nil {
		return ZERO, ZERO, err
	}
	amountA, amountB, err := pool.AddLiquidity(owner, tickLower, tickUpper, liquidity)
	if err != nil {
		return ZERO, ZERO, err
	}
	s.record(poolId, ADD_LIQUIDITY, ModifyPositionParams{Owner: owner, TickLower: tickLower, TickUpper: tickUpper, Liquidity: liquidity}, amountA, amountB)
	return amountA, amountB, nil
}

func (s *SimulatorFork) RemoveLiquidity(poolId string, owner string, tickLower int, tickUpper int, liquidity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	pool, err := s.GetPool(poolId)
	if err != nil {
		return ZERO, ZERO, err
	}
	amountA, amountB, err := pool.RemoveLiquidity(owner, tickLower, tickUpper, liquidity)
	if err != nil {
		return ZERO, ZERO, err
	}
	s.record(poolId, REMOVE_LIQUIDITY, ModifyPositionParams{Owner: owner, TickLower: tickLower, TickUpper: tickUpper, Liquidity: liquidity}, amountA, amountB)
	return amountA, amountB, nil
}

func (s *SimulatorFork) CollectFees(poolId string, owner string, tickLower int, tickUpper int, amountARequested, amountBRequested decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	pool, err := s.GetPool(poolId)
	if err != nil {
		return ZERO, ZERO, err
	}
	amountA, amountB, err := pool.CollectFees(owner, tickLower, tickUpper, amountARequested, amountBRequested)
	if err != nil {
		return ZERO, ZERO, err
	}
	s.record(poolId, COLLECT, CollectParams{Owner: owner, TickLower: tickLower, TickUpper: tickUpper, AmountARequested: amountARequested, AmountBRequested: amountBRequested}, amountA, amountB)
	return amountA, amountB, nil
}

func (s *SimulatorFork) AccrueReward(poolId string, rewarderIndex int, growthDelta decimal.Decimal) error {
	pool, err := s.GetPool(poolId)
	if err != nil {
		return err
	}
	err = pool.AccrueReward(rewarderIndex, growthDelta)
	if err != nil {
		return err
	}
	s.record(poolId, ACCRUE_REWARD, AccrueRewardParams{RewarderIndex: rewarderIndex, GrowthDelta: growthDelta}, ZERO, ZERO)
	return nil
}

// HandleEvent keeps the fork tracking the live event stream. Stream events
// are not journaled; Records holds only this fork's own actions.
func (s *SimulatorFork) HandleEvent(record *EventRecord) error {
	parsed, err := ParseEventRecord(record)
	if err != nil {
		logrus.Warnf("failed parse event, tx: %s pool: %s, %s", record.TxId, record.PoolId, err)
		return nil
	}
	switch event := parsed.(type) {
	case *InitializeEvent:
		// a pool the live simulator tracks counts as existing even before it
		// has been lazily forked in
		_, forked := s.Pools[record.PoolId]
		_, live := s.simulator.GetPool(record.PoolId)
		if forked || live {
			return fmt.Errorf("pool exists %s", record.PoolId)
		}
		pool := NewCorePoolFromConfig(record.PoolId, PoolConfig{
			TickSpacing: event.TickSpacing,
			TokenA:      event.TokenA,
			TokenB:      event.TokenB,
			FeeRate:     event.FeeRate,
		})
		err = pool.Initialize(event.SqrtPrice)
		if err != nil {
			return err
		}
		pool.DeploySeq = record.Seq
		pool.CurrentSeq = record.Seq
		s.Pools[record.PoolId] = pool
	case *AddLiquidityEvent:
		pool, err := s.GetPool(record.PoolId)
		if err != nil {
			logrus.Warnf("add_liquidity before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		_, _, err = pool.AddLiquidity(event.Owner, event.TickLower, event.TickUpper, event.Liquidity)
		if err != nil {
			logrus.Errorf("failed execute add_liquidity event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
	case *RemoveLiquidityEvent:
		pool, err := s.GetPool(record.PoolId)
		if err != nil {
			logrus.Warnf("remove_liquidity before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		_, _, err = pool.RemoveLiquidity(event.Owner, event.TickLower, event.TickUpper, event.Liquidity)
		if err != nil {
			logrus.Errorf("failed execute remove_liquidity event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
	case *CollectEvent:
		pool, err := s.GetPool(record.PoolId)
		if err != nil {
			logrus.Warnf("collect before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		_, _, err = pool.CollectFees(event.Owner, event.TickLower, event.TickUpper, event.AmountA, event.AmountB)
		if err != nil {
			logrus.Errorf("failed execute collect event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
	case *SwapEvent:
		pool, err := s.GetPool(record.PoolId)
		if err != nil {
			logrus.Warnf("swap before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		_, err = pool.ExecuteSwap(event.AToB, true, event.AmountIn)
		if err != nil {
			logrus.Errorf("failed execute swap event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
	case *AccrueRewardEvent:
		pool, err := s.GetPool(record.PoolId)
		if err != nil {
			logrus.Warnf("accrue_reward before initialize, tx: %s, pool: %s", record.TxId, record.PoolId)
			return nil
		}
		err = pool.AccrueReward(event.RewarderIndex, event.GrowthDelta)
		if err != nil {
			logrus.Errorf("failed execute accrue_reward event, %s tx: %s pool: %s", err, record.TxId, record.PoolId)
			return err
		}
		pool.CurrentSeq = record.Seq
	default:
		return fmt.Errorf("unhandled event type %s, tx: %s", record.EventType, record.TxId)
	}
	return nil
}
