package clmm_simulator

import (
	"encoding/json"
	"fmt"
	"github.com/shopspring/decimal"
)

const (
	EVENT_INITIALIZE       = "initialize"
	EVENT_ADD_LIQUIDITY    = "add_liquidity"
	EVENT_REMOVE_LIQUIDITY = "remove_liquidity"
	EVENT_COLLECT          = "collect"
	EVENT_SWAP             = "swap"
	EVENT_ACCRUE_REWARD    = "accrue_reward"
)

// EventRecord is the raw envelope one pool event arrives in. Seq orders
// events across all pools; Payload carries the event-specific fields.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	PoolId    string          `json:"pool_id"`
	EventType string          `json:"event_type"`
	TxId      string          `json:"tx_id"`
	Payload   json.RawMessage `json:"payload"`
}

type InitializeEvent struct {
	Raw         *EventRecord    `json:"-"`
	SqrtPrice   decimal.Decimal `json:"sqrt_price"`
	TickSpacing int             `json:"tick_spacing"`
	FeeRate     FeeRate         `json:"fee_rate"`
	TokenA      string          `json:"token_a"`
	TokenB      string          `json:"token_b"`
}

type AddLiquidityEvent struct {
	Raw       *EventRecord    `json:"-"`
	Owner     string          `json:"owner"`
	TickLower int             `json:"tick_lower"`
	TickUpper int             `json:"tick_upper"`
	Liquidity decimal.Decimal `json:"liquidity"`
	AmountA   decimal.Decimal `json:"amount_a"`
	AmountB   decimal.Decimal `json:"amount_b"`
}

type RemoveLiquidityEvent struct {
	Raw       *EventRecord    `json:"-"`
	Owner     string          `json:"owner"`
	TickLower int             `json:"tick_lower"`
	TickUpper int             `json:"tick_upper"`
	Liquidity decimal.Decimal `json:"liquidity"`
	AmountA   decimal.Decimal `json:"amount_a"`
	AmountB   decimal.Decimal `json:"amount_b"`
}

type CollectEvent struct {
	Raw       *EventRecord    `json:"-"`
	Owner     string          `json:"owner"`
	TickLower int             `json:"tick_lower"`
	TickUpper int             `json:"tick_upper"`
	AmountA   decimal.Decimal `json:"amount_a"`
	AmountB   decimal.Decimal `json:"amount_b"`
}

type SwapEvent struct {
	Raw       *EventRecord    `json:"-"`
	AToB      bool            `json:"a_to_b"`
	AmountIn  decimal.Decimal `json:"amount_in"`
	AmountOut decimal.Decimal `json:"amount_out"`
	SqrtPrice decimal.Decimal `json:"sqrt_price"`
	Liquidity decimal.Decimal `json:"liquidity"`
}

type AccrueRewardEvent struct {
	Raw           *EventRecord    `json:"-"`
	RewarderIndex int             `json:"rewarder_index"`
	GrowthDelta   decimal.Decimal `json:"growth_delta"`
}

// ParseEventRecord decodes the payload into the typed event for the record's
// event type, validating the fields the engine depends on.
func ParseEventRecord(record *EventRecord) (interface{}, error) {
	switch record.EventType {
	case EVENT_INITIALIZE:
		return parseInitializeEvent(record)
	case EVENT_ADD_LIQUIDITY:
		return parseAddLiquidityEvent(record)
	case EVENT_REMOVE_LIQUIDITY:
		return parseRemoveLiquidityEvent(record)
	case EVENT_COLLECT:
		return parseCollectEvent(record)
	case EVENT_SWAP:
		return parseSwapEvent(record)
	case EVENT_ACCRUE_REWARD:
		return parseAccrueRewardEvent(record)
	default:
		return nil, fmt.Errorf("unknown event type %s, tx: %s", record.EventType, record.TxId)
	}
}

func parseInitializeEvent(record *EventRecord) (*InitializeEvent, error) {
	parsed := &InitializeEvent{}
	if err := json.Unmarshal(record.Payload, parsed); err != nil {
		return nil, fmt.Errorf("failed parse initialize payload, tx: %s, %w", record.TxId, err)
	}
	if !parsed.SqrtPrice.IsPositive() {
		return nil, fmt.Errorf("initialize sqrt_price is not positive, tx: %s", record.TxId)
	}
	if parsed.TickSpacing <= 0 {
		return nil, fmt.Errorf("initialize tick_spacing is not positive, tx: %s", record.TxId)
	}
	parsed.Raw = record
	return parsed, nil
}

func parseAddLiquidityEvent(record *EventRecord) (*AddLiquidityEvent, error) {
	parsed := &AddLiquidityEvent{}
	if err := json.Unmarshal(record.Payload, parsed); err != nil {
		return nil, fmt.Errorf("failed parse add_liquidity payload, tx: %s, %w", record.TxId, err)
	}
	if !parsed.Liquidity.IsPositive() {
		return nil, fmt.Errorf("add_liquidity amount is not positive, tx: %s", record.TxId)
	}
	parsed.Raw = record
	return parsed, nil
}

func parseRemoveLiquidityEvent(record *EventRecord) (*RemoveLiquidityEvent, error) {
	parsed := &RemoveLiquidityEvent{}
	if err := json.Unmarshal(record.Payload, parsed); err != nil {
		return nil, fmt.Errorf("failed parse remove_liquidity payload, tx: %s, %w", record.TxId, err)
	}
	if !parsed.Liquidity.IsPositive() {
		return nil, fmt.Errorf("remove_liquidity amount is not positive, tx: %s", record.TxId)
	}
	parsed.Raw = record
	return parsed, nil
}

func parseCollectEvent(record *EventRecord) (*CollectEvent, error) {
	parsed := &CollectEvent{}
	if err := json.Unmarshal(record.Payload, parsed); err != nil {
		return nil, fmt.Errorf("failed parse collect payload, tx: %s, %w", record.TxId, err)
	}
	if parsed.AmountA.IsNegative() || parsed.AmountB.IsNegative() {
		return nil, fmt.Errorf("collect amount is negative, tx: %s", record.TxId)
	}
	parsed.Raw = record
	return parsed, nil
}

func parseSwapEvent(record *EventRecord) (*SwapEvent, error) {
	parsed := &SwapEvent{}
	if err := json.Unmarshal(record.Payload, parsed); err != nil {
		return nil, fmt.Errorf("failed parse swap payload, tx: %s, %w", record.TxId, err)
	}
	if parsed.AmountIn.IsZero() && parsed.AmountOut.IsZero() {
		return nil, fmt.Errorf("swap amount is 0, tx: %s", record.TxId)
	}
	if parsed.AmountIn.IsNegative() || parsed.AmountOut.IsNegative() {
		return nil, fmt.Errorf("swap amount is negative, tx: %s", record.TxId)
	}
	parsed.Raw = record
	return parsed, nil
}

func parseAccrueRewardEvent(record *EventRecord) (*AccrueRewardEvent, error) {
	parsed := &AccrueRewardEvent{}
	if err := json.Unmarshal(record.Payload, parsed); err != nil {
		return nil, fmt.Errorf("failed parse accrue_reward payload, tx: %s, %w", record.TxId, err)
	}
	if parsed.RewarderIndex < 0 || parsed.RewarderIndex >= NUM_REWARDS {
		return nil, fmt.Errorf("accrue_reward rewarder index %d out of range, tx: %s", parsed.RewarderIndex, record.TxId)
	}
	if parsed.GrowthDelta.IsNegative() {
		return nil, fmt.Errorf("accrue_reward growth delta is negative, tx: %s", record.TxId)
	}
	parsed.Raw = record
	return parsed, nil
}
