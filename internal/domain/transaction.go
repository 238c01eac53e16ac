package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionOp string

const (
	OpDeposit       TransactionOp = "deposit"
	OpWithdraw      TransactionOp = "withdraw"
	OpCompound      TransactionOp = "compound"
	OpGoalFund      TransactionOp = "goal_fund"
	OpEMIFund       TransactionOp = "emi_fund"
	OpGoalWithdraw  TransactionOp = "goal_withdraw"
	OpGoalLiquidate TransactionOp = "goal_liquidate"
	OpEMIPayment    TransactionOp = "emi_payment"
	OpGoalClose     TransactionOp = "goal_close"
	OpGoalDelete    TransactionOp = "goal_delete"
	OpAutoSave      TransactionOp = "auto_save"
	OpAutoPayEMI    TransactionOp = "auto_pay_emi"
	OpDeltaBuy      TransactionOp = "delta_buy"
	OpDeltaSell     TransactionOp = "delta_sell"
	OpAssetBuy      TransactionOp = "asset_buy"
	OpAssetSell     TransactionOp = "asset_sell"
)

// DefaultCategory is applied to transactions recorded without a category
const DefaultCategory = "General"

// Transaction is an immutable record of a balance-affecting operation
type Transaction struct {
	ID           string          `json:"id"`
	Op           TransactionOp   `json:"op"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Timestamp    time.Time       `json:"timestamp"`
	Category     string          `json:"category"`
	Tags         []string        `json:"tags"`
	Memo         string          `json:"memo"`
	Extension    string          `json:"extension"`
}

// TxMeta carries caller-supplied annotations for a transaction
type TxMeta struct {
	Category string
	Tags     []string
	Memo     string
}

// Normalize fills defaults and copies the tag slice
func (m TxMeta) Normalize() TxMeta {
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		if t != "" {
			tags = append(tags, t)
		}
	}
	m.Tags = tags
	return m
}

type TransactionFilters struct {
	Op       *TransactionOp
	Category *string
	Page     int32
	PageSize int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedTransactions struct {
	Data       []Transaction `json:"data"`
	Page       int32         `json:"page"`
	PageSize   int32         `json:"pageSize"`
	TotalItems int64         `json:"totalItems"`
	TotalPages int32         `json:"totalPages"`
}
