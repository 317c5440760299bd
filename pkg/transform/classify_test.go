package transform

import (
	"testing"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/monzo"
)

func testTopology() Topology {
	return Topology{
		AccountIDs:   map[string]bool{"acc_personal": true, "acc_joint": true},
		SavingsPotID: "pot_savings",
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		tx       monzo.Transaction
		expected Classification
	}{
		{
			name: "card purchase",
			tx: monzo.Transaction{
				ID:        "tx_1",
				AccountID: "acc_personal",
				Scheme:    "mastercard",
			},
			expected: Ordinary,
		},
		{
			name: "savings pot withdrawal",
			tx: monzo.Transaction{
				ID:        "tx_2",
				AccountID: "acc_personal",
				Scheme:    "uk_retail_pot",
				Metadata:  map[string]string{"pot_id": "pot_savings"},
			},
			expected: PotTransfer,
		},
		{
			name: "other pot traffic is ordinary",
			tx: monzo.Transaction{
				ID:        "tx_3",
				AccountID: "acc_personal",
				Scheme:    "uk_retail_pot",
				Metadata:  map[string]string{"pot_id": "pot_holiday"},
			},
			expected: Ordinary,
		},
		{
			name: "p2p to managed account",
			tx: monzo.Transaction{
				ID:           "tx_4",
				AccountID:    "acc_personal",
				Scheme:       "p2p_payment",
				Counterparty: monzo.Counterparty{AccountID: "acc_joint"},
			},
			expected: InternalTransfer,
		},
		{
			name: "faster payment to managed account",
			tx: monzo.Transaction{
				ID:           "tx_5",
				AccountID:    "acc_joint",
				Scheme:       "payport_faster_payments",
				Counterparty: monzo.Counterparty{AccountID: "acc_personal"},
			},
			expected: InternalTransfer,
		},
		{
			name: "p2p to unmanaged account",
			tx: monzo.Transaction{
				ID:           "tx_6",
				AccountID:    "acc_personal",
				Scheme:       "p2p_payment",
				Counterparty: monzo.Counterparty{AccountID: "acc_stranger"},
			},
			expected: Ordinary,
		},
		{
			name: "transfer scheme but no counterparty",
			tx: monzo.Transaction{
				ID:        "tx_7",
				AccountID: "acc_personal",
				Scheme:    "payport_faster_payments",
			},
			expected: Ordinary,
		},
		{
			name: "counterparty is self",
			tx: monzo.Transaction{
				ID:           "tx_8",
				AccountID:    "acc_personal",
				Scheme:       "p2p_payment",
				Counterparty: monzo.Counterparty{AccountID: "acc_personal"},
			},
			expected: Ordinary,
		},
		{
			name: "savings pot beats internal transfer",
			tx: monzo.Transaction{
				ID:           "tx_9",
				AccountID:    "acc_personal",
				Scheme:       "uk_retail_pot",
				Metadata:     map[string]string{"pot_id": "pot_savings"},
				Counterparty: monzo.Counterparty{AccountID: "acc_joint"},
			},
			expected: PotTransfer,
		},
		{
			name: "managed counterparty without transfer scheme",
			tx: monzo.Transaction{
				ID:           "tx_10",
				AccountID:    "acc_personal",
				Scheme:       "mastercard",
				Counterparty: monzo.Counterparty{AccountID: "acc_joint"},
			},
			expected: Ordinary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(tt.tx, testTopology())
			if result != tt.expected {
				t.Errorf("Classify(%s) = %s, expected %s", tt.tx.ID, result, tt.expected)
			}
		})
	}
}

func TestClassifyNoSavingsPot(t *testing.T) {
	topo := Topology{AccountIDs: map[string]bool{"acc_personal": true}}
	tx := monzo.Transaction{
		ID:        "tx_1",
		AccountID: "acc_personal",
		Scheme:    "uk_retail_pot",
		Metadata:  map[string]string{"pot_id": "pot_savings"},
	}
	if got := Classify(tx, topo); got != Ordinary {
		t.Errorf("Classify with no configured pot = %s, expected ordinary", got)
	}
}

func TestClassificationString(t *testing.T) {
	tests := []struct {
		class    Classification
		expected string
	}{
		{Ordinary, "ordinary"},
		{InternalTransfer, "internal_transfer"},
		{PotTransfer, "pot_transfer"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.expected {
			t.Errorf("String() = %q, expected %q", got, tt.expected)
		}
	}
}

func TestIsTransfer(t *testing.T) {
	if Ordinary.IsTransfer() {
		t.Error("Ordinary.IsTransfer() = true, expected false")
	}
	if !InternalTransfer.IsTransfer() || !PotTransfer.IsTransfer() {
		t.Error("transfer classifications should report IsTransfer")
	}
}
