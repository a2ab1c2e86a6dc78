package models

// LookupTable names a key -> id reference table.
type LookupTable string

const (
	TableTokenTypes        LookupTable = "token_types"
	TableCategories        LookupTable = "categories"
	TableDonationStatus    LookupTable = "donation_status"
	TableRequestStatus     LookupTable = "request_status"
	TableCollectionCenters LookupTable = "collection_centers"
)

// LookupEntry is one row of a reference table.
type LookupEntry struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}
