package transform

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/lunchmoney"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/monzo"
)

// MirrorSavingsSuffix is appended to the source transaction id to form
// the idempotency key for the savings mirror leg. The suffix is fixed
// so re-runs derive byte-identical keys.
const MirrorSavingsSuffix = ":mirror_savings"

// savingsMirrorNote labels the synthetic savings leg.
const savingsMirrorNote = "Transfer to savings"

// Options configures a Transformer.
type Options struct {
	// AssetIDs maps Monzo account ids to Lunch Money asset ids.
	AssetIDs map[string]int64
	// SavingsAssetID receives the mirror leg of savings pot transfers.
	SavingsAssetID int64
	// TransferCategoryID tags transfer legs; 0 posts them uncategorized.
	TransferCategoryID int64
	// Mapper resolves categories for ordinary transactions. May be nil.
	Mapper *CategoryMapper
}

// Transformer converts classified Monzo transactions into Lunch Money
// insert records.
type Transformer struct {
	opts Options
}

// NewTransformer creates a Transformer.
func NewTransformer(opts Options) *Transformer {
	return &Transformer{opts: opts}
}

// Transform maps one classified transaction to one or two outgoing
// records: pot transfers yield the origin leg plus a mirror leg into
// the savings asset; everything else yields exactly one record.
//
// Sign convention: outflows negative, inflows positive. The mirror leg
// is the arithmetic opposite of the origin leg, since money leaving
// the account is money arriving in the pot.
func (tf *Transformer) Transform(tx monzo.Transaction, class Classification) []lunchmoney.Transaction {
	record := lunchmoney.Transaction{
		// Calendar day in the timestamp's own timezone; never shifted.
		Date:       tx.Created.Format("2006-01-02"),
		Amount:     MajorUnits(tx.Amount, tx.Currency),
		Currency:   strings.ToLower(tx.Currency),
		Payee:      payee(tx),
		Notes:      combineNotes(tx.Notes, tx.Metadata["tags"]),
		Status:     "cleared",
		AssetID:    tf.opts.AssetIDs[tx.AccountID],
		ExternalID: tx.ID,
	}
	record.CategoryID = tf.categoryFor(tx, class)

	if class != PotTransfer || tf.opts.SavingsAssetID == 0 {
		return []lunchmoney.Transaction{record}
	}

	mirror := record
	mirror.Amount = record.Amount.Neg()
	mirror.AssetID = tf.opts.SavingsAssetID
	mirror.ExternalID = tx.ID + MirrorSavingsSuffix
	mirror.Notes = AppendNote(record.Notes, savingsMirrorNote)
	return []lunchmoney.Transaction{record, mirror}
}

func (tf *Transformer) categoryFor(tx monzo.Transaction, class Classification) *int64 {
	if class.IsTransfer() {
		if tf.opts.TransferCategoryID != 0 {
			id := tf.opts.TransferCategoryID
			return &id
		}
		return nil
	}
	if id, ok := tf.opts.Mapper.Resolve(tx.Category); ok {
		return &id
	}
	return nil
}

// zeroDecimalCurrencies have no minor unit; everything else synced
// here uses two decimal places.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// MajorUnits converts a minor-unit integer amount to a decimal amount
// in major units at the currency's native precision.
func MajorUnits(minor int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return decimal.New(minor, 0)
	}
	return decimal.New(minor, -2)
}

// payee picks the best human label: merchant name, then counterparty
// name, then the raw description.
func payee(tx monzo.Transaction) string {
	if tx.Merchant != nil && tx.Merchant.Name != "" {
		return tx.Merchant.Name
	}
	if tx.Counterparty.Name != "" {
		return tx.Counterparty.Name
	}
	return tx.Description
}

// combineNotes joins user-entered notes with hashtag-formatted Monzo
// tags. Both are optional.
func combineNotes(notes, tags string) string {
	notes = strings.TrimSpace(notes)
	var hashtags []string
	for _, tok := range strings.FieldsFunc(tags, func(r rune) bool { return r == ',' || r == ' ' }) {
		tok = strings.TrimPrefix(tok, "#")
		if tok != "" {
			hashtags = append(hashtags, "#"+tok)
		}
	}
	tagText := strings.Join(hashtags, " ")

	switch {
	case notes != "" && tagText != "":
		return notes + " " + tagText
	case notes != "":
		return notes
	default:
		return tagText
	}
}

// AppendNote appends a phrase to possibly empty existing notes.
func AppendNote(existing, phrase string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return phrase
	}
	return existing + " | " + phrase
}
