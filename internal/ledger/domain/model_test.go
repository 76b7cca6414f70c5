package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionTypeClasses(t *testing.T) {
	t.Run("debits", func(t *testing.T) {
		for _, typ := range []TransactionType{TxDebit, TxWithdrawal, TxProjectPayment, TxPenalty} {
			assert.True(t, typ.IsDebit(), "%s", typ)
			assert.False(t, typ.IsCredit(), "%s", typ)
			assert.True(t, typ.IsValid(), "%s", typ)
		}
	})

	t.Run("credits", func(t *testing.T) {
		for _, typ := range []TransactionType{TxCredit, TxRefund, TxTopUp, TxProjectEarning, TxCommission, TxBonus} {
			assert.True(t, typ.IsCredit(), "%s", typ)
			assert.False(t, typ.IsDebit(), "%s", typ)
			assert.True(t, typ.IsValid(), "%s", typ)
		}
	})

	t.Run("reversal is valid but directionless", func(t *testing.T) {
		assert.True(t, TxReversal.IsValid())
		assert.False(t, TxReversal.IsDebit())
		assert.False(t, TxReversal.IsCredit())
	})

	t.Run("unknown type", func(t *testing.T) {
		assert.False(t, TransactionType("chargeback").IsValid())
	})
}

func TestInternalTypesCompleteImmediately(t *testing.T) {
	for _, typ := range []TransactionType{TxProjectPayment, TxProjectEarning, TxCommission, TxRefund, TxPenalty, TxBonus} {
		assert.True(t, typ.IsInternal(), "%s", typ)
	}
	// gateway-sourced movement starts pending
	for _, typ := range []TransactionType{TxTopUp, TxWithdrawal, TxCredit, TxDebit} {
		assert.False(t, typ.IsInternal(), "%s", typ)
	}
}
