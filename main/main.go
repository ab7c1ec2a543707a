package main

import (
	"encoding/json"
	clmm_simulator "github.com/CoinSummer/clmm-simulator"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"os"
)

func main() {
	dbFile := "simulator.db"
	if len(os.Args) > 1 {
		dbFile = os.Args[1]
	}
	smt, err := clmm_simulator.NewSimulator(dbFile)
	if err != nil {
		panic(err)
	}

	price := decimal.NewFromInt(2).Pow(decimal.NewFromInt(64))
	events := []*clmm_simulator.EventRecord{
		{
			Seq:       1,
			PoolId:    "pool-usdc-usdt",
			EventType: clmm_simulator.EVENT_INITIALIZE,
			TxId:      "tx-1",
			Payload: mustPayload(map[string]interface{}{
				"sqrt_price":   price,
				"tick_spacing": 10,
				"fee_rate":     clmm_simulator.FeeRateLow,
				"token_a":      "USDC",
				"token_b":      "USDT",
			}),
		},
		{
			Seq:       2,
			PoolId:    "pool-usdc-usdt",
			EventType: clmm_simulator.EVENT_ADD_LIQUIDITY,
			TxId:      "tx-2",
			Payload: mustPayload(map[string]interface{}{
				"owner":      "lp-1",
				"tick_lower": -1000,
				"tick_upper": 1000,
				"liquidity":  1000000,
			}),
		},
	}
	err = smt.HandleEvents(events)
	if err != nil {
		panic(err)
	}

	pool, ok := smt.GetPool("pool-usdc-usdt")
	if !ok {
		panic("pool missing after initialize")
	}
	quote, err := pool.Quote(true, true, decimal.NewFromInt(10000))
	if err != nil {
		panic(err)
	}
	logrus.Infof("quote: in %s out %s fee %s price %s", quote.AmountIn, quote.AmountOut, quote.FeeAmount, quote.NextSqrtPrice)

	fork := clmm_simulator.NewSimulatorFork(smt)
	forkResult, err := fork.Swap("pool-usdc-usdt", true, true, decimal.NewFromInt(10000))
	if err != nil {
		panic(err)
	}
	logrus.Infof("fork swap: out %s, crossed %d ticks", forkResult.AmountOut, forkResult.CrossTickCount)

	err = smt.FlushPools()
	if err != nil {
		panic(err)
	}
}

func mustPayload(v map[string]interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
