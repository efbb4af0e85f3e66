package ir

// NOTE: These are store-layer records, not part of the wire format.

// Instance is a deployed contract instance (store-layer).
type Instance struct {
	Address        string `json:"address"` // ContractAddress.String()
	Contract       string `json:"contract"`
	SpecHash       string `json:"spec_hash"`
	RuntimeVersion string `json:"runtime_version"`
	InitialRoot    string `json:"initial_root"`
	InitialState   []byte `json:"initial_state"` // binary state tree encoding
}

// CallRecord is a committed circuit call (store-layer).
type CallRecord struct {
	ID       string `json:"id"` // UUIDv7
	Instance string `json:"instance"`
	Seq      int64  `json:"seq"` // Logical clock
	Circuit  string `json:"circuit"`

	// Args holds the arguments in native form (decimal strings, booleans,
	// hex byte blocks, lists and objects of those).
	Args []any `json:"args"`

	PreRoot   string `json:"pre_root"`
	PostRoot  string `json:"post_root"`
	PostState []byte `json:"post_state"` // binary state tree encoding

	// Transcript is the canonical JSON form of the call's proof data.
	Transcript []byte `json:"transcript"`
	Commitment string `json:"commitment"` // hex
	GasCost    uint64 `json:"gas_cost"`
	Digest     string `json:"digest"` // CallDigest
}
