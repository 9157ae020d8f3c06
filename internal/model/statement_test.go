package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionSigned(t *testing.T) {
	tests := []struct {
		txType TransactionType
		amount string
		want   string
	}{
		{TransactionCredit, "500.00", "500"},
		{TransactionDebit, "250.00", "-250"},
		{TransactionDebit, "0", "0"},
	}
	for _, tt := range tests {
		txn := Transaction{Type: tt.txType, Amount: decimal.RequireFromString(tt.amount)}
		assert.True(t, decimal.RequireFromString(tt.want).Equal(txn.Signed()), "Signed(%s %s)", tt.txType, tt.amount)
	}
}

func TestTransactionIsCredit(t *testing.T) {
	assert.True(t, Transaction{Type: TransactionCredit}.IsCredit())
	assert.False(t, Transaction{Type: TransactionDebit}.IsCredit())
	assert.False(t, Transaction{}.IsCredit())
}
