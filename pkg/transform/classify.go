package transform

import "github.com/tomharle/monzo-lunchmoney-sync/pkg/monzo"

// Classification tags a transaction with how the sync should treat it.
type Classification int

const (
	// Ordinary is a regular purchase or payment.
	Ordinary Classification = iota
	// InternalTransfer moves money between two managed Monzo accounts.
	InternalTransfer
	// PotTransfer moves money into or out of the configured savings pot.
	PotTransfer
)

func (c Classification) String() string {
	switch c {
	case InternalTransfer:
		return "internal_transfer"
	case PotTransfer:
		return "pot_transfer"
	default:
		return "ordinary"
	}
}

// IsTransfer reports whether the classification is either transfer kind.
func (c Classification) IsTransfer() bool {
	return c == InternalTransfer || c == PotTransfer
}

// Topology describes the account set the sync manages.
type Topology struct {
	// AccountIDs is the set of managed Monzo account ids.
	AccountIDs map[string]bool
	// SavingsPotID is the one pot mirrored to a separate asset, or "".
	SavingsPotID string
}

// transferSchemes are the Monzo schemes that mark inter-account
// movements (as opposed to card purchases).
var transferSchemes = map[string]bool{
	"p2p_payment":             true,
	"payport_faster_payments": true,
	"uk_retail_pot":           true,
}

// classifyRule is one priority-ordered classification rule. Rules are
// evaluated in order; the first match wins.
type classifyRule struct {
	name    string
	matches func(tx monzo.Transaction, topo Topology) bool
	class   Classification
}

// rules is the classification priority order. Pot traffic wins over
// the internal-transfer scheme check: pot mirroring is strictly more
// specific than account-to-account movement.
var rules = []classifyRule{
	{
		name: "savings pot traffic",
		matches: func(tx monzo.Transaction, topo Topology) bool {
			return topo.SavingsPotID != "" && tx.PotID() == topo.SavingsPotID
		},
		class: PotTransfer,
	},
	{
		name: "transfer to managed counterparty",
		matches: func(tx monzo.Transaction, topo Topology) bool {
			cp := tx.Counterparty.AccountID
			return transferSchemes[tx.Scheme] && cp != "" && cp != tx.AccountID && topo.AccountIDs[cp]
		},
		class: InternalTransfer,
	},
}

// Classify determines how a transaction should be treated. Ambiguous
// or missing counterparty information fails open to Ordinary so no
// transaction is ever dropped for lack of routing data.
func Classify(tx monzo.Transaction, topo Topology) Classification {
	for _, rule := range rules {
		if rule.matches(tx, topo) {
			return rule.class
		}
	}
	return Ordinary
}
