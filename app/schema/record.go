// Package schema defines the customer intake record contract and its validator.
//
// Input files carry customer identity in exactly one of two shapes: flat
// (CustomerID + CustomerCardNumber at the top level) or nested (a Customer
// object holding the same fields plus optional CustomerDetails). The validator
// enforces mutual exclusivity and normalizes both shapes into CustomerIdentity.
package schema

// Top-level field names of the wire format.
const (
	fieldOperatorID      = "OperatorID"
	fieldCustomerID      = "CustomerID"
	fieldCustomer        = "Customer"
	fieldCustomerDetails = "CustomerDetails"
	fieldMetadata        = "Metadata"

	// cardNumberField is treated as a secret wherever it appears.
	cardNumberField = "CustomerCardNumber"
)

// StructureType tags which of the two customer representations a record used.
// It is derived during validation and is not part of the wire data.
type StructureType string

const (
	StructureFlat   StructureType = "flat"
	StructureNested StructureType = "nested"
)

// CustomerIdentity is the customer portion of a record, normalized from
// whichever representation the input used.
type CustomerIdentity struct {
	Structure  StructureType
	ID         string
	CardNumber string         // secret, never logged in full
	Details    map[string]any // nested representation only, free-form
}

// Masked returns the card number with only the first and last four characters
// visible, for diagnostic logging.
func (c CustomerIdentity) Masked() string {
	if len(c.CardNumber) < 8 {
		return "****"
	}
	return c.CardNumber[:4] + "********" + c.CardNumber[len(c.CardNumber)-4:]
}

// Record is a successfully validated intake record.
type Record struct {
	OperatorID string
	Customer   CustomerIdentity
	Metadata   map[string]any // free-form, optional
}
