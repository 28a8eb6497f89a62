package signer

import "encoding/json"

// Canonical serializes v as sorted-key JSON. Struct field order is stable
// within one binary but not across implementations, so documents are
// round-tripped through a generic tree, which encoding/json emits with map
// keys sorted. Signatures and content hashes are always computed over this
// form.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}
